package service

// VoiceOption is one entry in the selectable voice catalog.
type VoiceOption struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Style string `json:"style"`
}

// VoiceCatalog is the fixed set of voices offered by the picker.
var VoiceCatalog = []VoiceOption{
	{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel", Style: "warm and natural"},
	{ID: "AZnzlk1XvdvUeBnXmlld", Name: "Domi", Style: "bright and energetic"},
	{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella", Style: "soft and soothing"},
	{ID: "ErXwobaYiN019PkySvjV", Name: "Antoni", Style: "calm and deep"},
}

// ValidVoiceID reports whether an ID belongs to the catalog
func ValidVoiceID(id string) bool {
	for _, v := range VoiceCatalog {
		if v.ID == id {
			return true
		}
	}
	return false
}
