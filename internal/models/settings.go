package models

// Settings is the user-adjustable portion of the configuration, persisted as
// a single record and merged over compiled-in defaults on load. Stored values
// win; keys absent from the persisted record fall back to the defaults.
type Settings struct {
	BaseURL        string `json:"base_url"`
	JWT            string `json:"jwt"`
	APIKey         string `json:"api_key"`
	WarehouseID    string `json:"warehouse_id"`
	RelayURL       string `json:"relay_url"`
	SimulationMode bool   `json:"simulation_mode"`
}
