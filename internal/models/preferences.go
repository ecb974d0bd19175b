package models

const (
	DefaultMedianWindowMonths  = 12
	DefaultAverageWindowMonths = 24
)

// Preferences holds the comparison windows chosen by the user
type Preferences struct {
	MedianWindowMonths  int `json:"median_window_months" validate:"required,min=1,max=120"`
	AverageWindowMonths int `json:"average_window_months" validate:"required,min=1,max=120"`
}

// DefaultPreferences returns the windows used before the user saves any
func DefaultPreferences() Preferences {
	return Preferences{
		MedianWindowMonths:  DefaultMedianWindowMonths,
		AverageWindowMonths: DefaultAverageWindowMonths,
	}
}
