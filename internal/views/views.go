package views

import (
	"embed"
	"fmt"
	"html/template"
	"time"

	"gorm.io/datatypes"
)

//go:embed layouts/*.tmpl pages/*.tmpl
var files embed.FS

var greekDays = [...]string{"Κυρ", "Δευ", "Τρι", "Τετ", "Πεμ", "Παρ", "Σαβ"}

var statusLabels = map[string]string{
	"scheduled": "Προγραμματισμένο",
	"completed": "Ολοκληρώθηκε",
	"canceled":  "Ακυρώθηκε",
}

// Base parses the shared layouts. Pages are added per handler with Page.
func Base() *template.Template {
	funcs := template.FuncMap{
		"year":    func() string { return time.Now().Format("2006") },
		"fmtDate": func(t time.Time) string { return t.Format("02/01/2006") },
		"isoDate": func(t time.Time) string { return t.Format("2006-01-02") },
		"dayName": func(t time.Time) string { return greekDays[t.Weekday()] },
		"dbDate":  func(d datatypes.Date) string { return time.Time(d).Format("02/01/2006") },
		"optDate": func(d *datatypes.Date) string {
			if d == nil {
				return ""
			}
			return time.Time(*d).Format("02/01/2006")
		},
		"optISO": func(d *datatypes.Date) string {
			if d == nil {
				return ""
			}
			return time.Time(*d).Format("2006-01-02")
		},
		"euros": func(cents int64) string {
			sign := ""
			if cents < 0 {
				sign, cents = "-", -cents
			}
			return fmt.Sprintf("%s%d,%02d", sign, cents/100, cents%100)
		},
		"status": func(s string) string {
			if l, ok := statusLabels[s]; ok {
				return l
			}
			return s
		},
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(files, "layouts/*.tmpl"))
}

// Page clones base and adds pages/<name>. Execute it with the same name.
func Page(base *template.Template, name string) *template.Template {
	view := template.Must(base.Clone())
	return template.Must(view.ParseFS(files, "pages/"+name))
}
