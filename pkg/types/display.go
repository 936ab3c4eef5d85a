package types

// Display is the set of strings handed to a rendering surface.
type Display struct {
	HasData  bool   `json:"hasData"`
	Current  string `json:"current"`
	Today    string `json:"today"`
	Week     string `json:"week"`
	Month    string `json:"month"`
	Lifetime string `json:"lifetime"`
	Updated  string `json:"updated"`
}
