package settings

import "time"

// Stored keys in site_settings.
const (
	KeyContactEmail = "contact_email"
	KeyContactPhone = "contact_phone"
	KeyWhatsApp     = "whatsapp"
	KeyAddress      = "address"
	KeyInstagram    = "instagram"
)

// Keys lists every managed key in display order.
var Keys = []string{KeyContactEmail, KeyContactPhone, KeyWhatsApp, KeyAddress, KeyInstagram}

// Settings holds the public contact information of the site.
type Settings struct {
	ContactEmail string    `json:"contact_email" validate:"omitempty,email,max=254"`
	ContactPhone string    `json:"contact_phone" validate:"omitempty,max=32"`
	WhatsApp     string    `json:"whatsapp" validate:"omitempty,e164"`
	Address      string    `json:"address" validate:"omitempty,max=500"`
	Instagram    string    `json:"instagram" validate:"omitempty,max=30,excludesall=@/"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Values flattens s into key/value pairs.
func (s Settings) Values() map[string]string {
	return map[string]string{
		KeyContactEmail: s.ContactEmail,
		KeyContactPhone: s.ContactPhone,
		KeyWhatsApp:     s.WhatsApp,
		KeyAddress:      s.Address,
		KeyInstagram:    s.Instagram,
	}
}

// FromValues builds Settings from stored rows; unknown keys are ignored.
func FromValues(values map[string]string) Settings {
	return Settings{
		ContactEmail: values[KeyContactEmail],
		ContactPhone: values[KeyContactPhone],
		WhatsApp:     values[KeyWhatsApp],
		Address:      values[KeyAddress],
		Instagram:    values[KeyInstagram],
	}
}

// Changed returns the keys whose value differs between a and b.
func Changed(a, b Settings) []string {
	av, bv := a.Values(), b.Values()
	var out []string
	for _, k := range Keys {
		if av[k] != bv[k] {
			out = append(out, k)
		}
	}
	return out
}
