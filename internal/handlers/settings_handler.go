package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/relatus/internal/common"
	"github.com/ternarybob/relatus/internal/interfaces"
	"github.com/ternarybob/relatus/internal/models"
)

// SettingsHandler serves the persisted user settings. PUT writes the record
// and re-applies it to the live services through the apply callback.
type SettingsHandler struct {
	storage interfaces.SettingsStorage
	config  *common.Config
	apply   func(models.Settings)
	logger  arbor.ILogger
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(storage interfaces.SettingsStorage, config *common.Config, apply func(models.Settings), logger arbor.ILogger) *SettingsHandler {
	return &SettingsHandler{
		storage: storage,
		config:  config,
		apply:   apply,
		logger:  logger,
	}
}

// ConfigHandler handles /api/config: GET returns the effective settings,
// PUT persists new ones.
func (h *SettingsHandler) ConfigHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.getConfig(w, r)
	case "PUT":
		h.putConfig(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// getConfig returns the persisted settings merged over the configured
// defaults. Keys absent from the stored record fall back to configuration.
func (h *SettingsHandler) getConfig(w http.ResponseWriter, r *http.Request) {
	effective := h.defaults()

	stored, err := h.storage.Load(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load settings")
		WriteError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	if stored != nil {
		effective = mergeSettings(effective, *stored)
	}

	WriteJSON(w, http.StatusOK, effective)
}

func (h *SettingsHandler) putConfig(w http.ResponseWriter, r *http.Request) {
	var settings models.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.storage.Save(r.Context(), &settings); err != nil {
		h.logger.Error().Err(err).Msg("Failed to save settings")
		WriteError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	if h.apply != nil {
		h.apply(settings)
	}

	h.logger.Info().Msg("Settings updated")
	WriteSuccess(w, "settings saved")
}

func (h *SettingsHandler) defaults() models.Settings {
	ee := h.config.EasyEcom
	return models.Settings{
		BaseURL:        ee.BaseURL,
		JWT:            ee.JWT,
		APIKey:         ee.APIKey,
		WarehouseID:    ee.WarehouseID,
		RelayURL:       ee.RelayURL,
		SimulationMode: ee.SimulationMode,
	}
}

// mergeSettings layers stored values over defaults. Stored non-empty strings
// win; the simulation flag always comes from the stored record.
func mergeSettings(defaults, stored models.Settings) models.Settings {
	merged := defaults
	if stored.BaseURL != "" {
		merged.BaseURL = stored.BaseURL
	}
	if stored.JWT != "" {
		merged.JWT = stored.JWT
	}
	if stored.APIKey != "" {
		merged.APIKey = stored.APIKey
	}
	if stored.WarehouseID != "" {
		merged.WarehouseID = stored.WarehouseID
	}
	if stored.RelayURL != "" {
		merged.RelayURL = stored.RelayURL
	}
	merged.SimulationMode = stored.SimulationMode
	return merged
}
