// internal/config/normalize.go
package config

import "strings"

// Normalize applies post-validation defaults.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	for di := range cfg.Devices {
		d := &cfg.Devices[di]

		if d.Serial != nil {
			if d.Serial.BaudRate == 0 {
				d.Serial.BaudRate = 9600
			}
			if d.Serial.DataBits == 0 {
				d.Serial.DataBits = 8
			}
			if d.Serial.StopBits == 0 {
				d.Serial.StopBits = 1
			}
			d.Serial.Parity = strings.ToUpper(d.Serial.Parity)
			if d.Serial.Parity == "" {
				d.Serial.Parity = "N"
			}
		}

		for pi := range d.Polls {
			p := &d.Polls[pi]
			for ri := range p.Refs {
				r := &p.Refs[ri]

				if r.Type == "" {
					if IsBitObject(p.ObjectType) {
						r.Type = TypeBool
					} else {
						r.Type = TypeUint16
					}
				}
				if r.Scale == 0 {
					r.Scale = 1
				}
				if r.WordOrder == "" {
					r.WordOrder = WordOrderBig
				}
			}
		}
	}
}

// NormalizeOptions fills option defaults.
func NormalizeOptions(o *Options) {
	if o.BusKind == "" {
		o.BusKind = BusMQTT
	}
	o.BusKind = strings.ToLower(o.BusKind)
	if o.BusPort == 0 {
		switch o.BusKind {
		case BusNATS:
			o.BusPort = 4222
		default:
			o.BusPort = 1883
		}
	}
}
