package console

import "sort"

// Template is a canned payload for the publish command. Command templates are
// re-enveloped by the dispatcher so each publish carries a fresh request_id;
// raw templates (system, notify) are published as-is.
type Template struct {
	Category string
	Name     string
	Command  string                 // thing name, set for iot command templates
	Method   string                 // thing method, set for iot command templates
	Params   map[string]interface{} // command parameters or the raw payload
}

// IsCommand reports whether the template dispatches through a command envelope.
func (t Template) IsCommand() bool {
	return t.Command != ""
}

var templates = map[string]Template{
	"screen-brightness": {
		Category: "iot", Name: "screen-brightness",
		Command: "Screen", Method: "SetBrightness",
		Params: map[string]interface{}{"brightness": 80},
	},
	"screen-theme-dark": {
		Category: "iot", Name: "screen-theme-dark",
		Command: "Screen", Method: "SetTheme",
		Params: map[string]interface{}{"theme_name": "dark"},
	},
	"screen-theme-light": {
		Category: "iot", Name: "screen-theme-light",
		Command: "Screen", Method: "SetTheme",
		Params: map[string]interface{}{"theme_name": "light"},
	},
	"speaker-volume": {
		Category: "iot", Name: "speaker-volume",
		Command: "Speaker", Method: "SetVolume",
		Params: map[string]interface{}{"volume": 80},
	},
	"alarm-once": {
		Category: "iot", Name: "alarm-once",
		Command: "Alarm", Method: "SetAlarm",
		Params: map[string]interface{}{"second_from_now": 60, "alarm_name": "test alarm"},
	},
	"alarm-daily": {
		Category: "iot", Name: "alarm-daily",
		Command: "Alarm", Method: "SetAlarm",
		Params: map[string]interface{}{"second_from_now": 120, "alarm_name": "daily reminder", "repeat_type": 1},
	},
	"alarm-cancel": {
		Category: "iot", Name: "alarm-cancel",
		Command: "Alarm", Method: "CancelAlarm",
		Params: map[string]interface{}{"alarm_name": "test alarm"},
	},
	"image-animated": {
		Category: "iot", Name: "image-animated",
		Command: "ImageDisplay", Method: "SetAnimatedMode",
		Params: map[string]interface{}{},
	},
	"image-static": {
		Category: "iot", Name: "image-static",
		Command: "ImageDisplay", Method: "SetStaticMode",
		Params: map[string]interface{}{},
	},
	"music-show": {
		Category: "iot", Name: "music-show",
		Command: "MusicPlayer", Method: "Show",
		Params: map[string]interface{}{"duration_ms": 30000, "song_title": "Nocturne", "artist_name": "Jay Chou"},
	},
	"music-hide": {
		Category: "iot", Name: "music-hide",
		Command: "MusicPlayer", Method: "Hide",
		Params: map[string]interface{}{},
	},
	"system-reboot": {
		Category: "system", Name: "system-reboot",
		Params: map[string]interface{}{"type": "system", "action": "reboot", "delay_ms": 1000},
	},
	"system-reboot-delayed": {
		Category: "system", Name: "system-reboot-delayed",
		Params: map[string]interface{}{"type": "system", "action": "reboot", "delay_ms": 5000},
	},
	"notify": {
		Category: "notify", Name: "notify",
		Params: map[string]interface{}{"type": "notify", "title": "notification title", "body": "notification body"},
	},
	"notify-title-only": {
		Category: "notify", Name: "notify-title-only",
		Params: map[string]interface{}{"type": "notify", "title": "a notification"},
	},
}

// LookupTemplate returns a named template.
func LookupTemplate(name string) (Template, bool) {
	t, ok := templates[name]
	return t, ok
}

// TemplateNames lists the available templates sorted by name.
func TemplateNames() []Template {
	out := make([]Template, 0, len(templates))
	for _, t := range templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
