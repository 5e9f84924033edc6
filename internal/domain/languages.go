package domain

// LanguageOption describes one supported sign language for pickers.
type LanguageOption struct {
	Code         string `json:"code"`
	ProviderCode string `json:"providerCode"`
	DisplayName  string `json:"displayName"`
	MenuTitle    string `json:"menuTitle"`
	BusinessName string `json:"businessName"`
	Selected     bool   `json:"selected"`
}
