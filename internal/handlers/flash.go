package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type Flash struct {
	Kind string // "ok" or "error"
	Text string
}

var okText = map[string]string{
	"saved":      "Αποθηκεύτηκε.",
	"created":    "Τα ραντεβού δημιουργήθηκαν.",
	"deleted":    "Διαγράφηκε.",
	"renewed":    "Η γνωμάτευση ανανεώθηκε.",
	"paid":       "Η πληρωμή καταχωρήθηκε.",
	"status":     "Η κατάσταση ενημερώθηκε.",
	"checked_in": "Το ραντεβού ολοκληρώθηκε.",
}

var errText = map[string]string{
	"not_found":            "Ο μαθητής ή η υπηρεσία δεν βρέθηκε.",
	"bad_date":             "Μη έγκυρη ημερομηνία.",
	"bad_phone":            "Μη έγκυρο τηλέφωνο.",
	"bad_time":             "Μη έγκυρη ώρα (ΩΩ:ΛΛ).",
	"bad_count":            "Μη έγκυρος αριθμός συνεδριών.",
	"bad_duration":         "Μη έγκυρη διάρκεια (λεπτά).",
	"expiry_limit":         "Η ημερομηνία έναρξης είναι μετά τη λήξη της γνωμάτευσης.",
	"service_not_assigned": "Η υπηρεσία δεν έχει ανατεθεί στον μαθητή.",
	"no_sessions":          "Δεν υπάρχουν διαθέσιμες συνεδρίες.",
	"rest_day":             "Η ημερομηνία έναρξης είναι ημέρα αργίας της εβδομάδας.",
	"bad_status":           "Μη έγκυρη κατάσταση ή ραντεβού.",
	"invalid":              "Ελέγξτε τα υποχρεωτικά πεδία.",
	"exists":               "Υπάρχει ήδη.",
	"bad_amount":           "Μη έγκυρο ποσό.",
	"bad_login":            "Λάθος όνομα χρήστη ή κωδικός.",
}

// MakeFlash reads ?ok= / ?error= and falls back to handler-provided strings.
func MakeFlash(r *http.Request, errStr, msgStr string) *Flash {
	q := r.URL.Query()

	if key := strings.ToLower(strings.TrimSpace(q.Get("error"))); key != "" {
		if t, ok := errText[key]; ok {
			return &Flash{Kind: "error", Text: t}
		}
		return &Flash{Kind: "error", Text: key}
	}
	if key := strings.ToLower(strings.TrimSpace(q.Get("ok"))); key != "" {
		if key == "partial" {
			return &Flash{Kind: "ok", Text: fmt.Sprintf("Δημιουργήθηκαν μόνο %s ραντεβού λόγω λήξης γνωμάτευσης.", q.Get("created"))}
		}
		if t, ok := okText[key]; ok {
			return &Flash{Kind: "ok", Text: t}
		}
		return &Flash{Kind: "ok", Text: key}
	}

	if errStr != "" {
		return &Flash{Kind: "error", Text: errStr}
	}
	if msgStr != "" {
		return &Flash{Kind: "ok", Text: msgStr}
	}
	return nil
}

// withFlash appends a flash key (and extra pairs) to a local path.
func withFlash(path, kind, key string, extra ...string) string {
	u, err := url.Parse(path)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Del("ok")
	q.Del("error")
	q.Del("created")
	q.Set(kind, key)
	for i := 0; i+1 < len(extra); i += 2 {
		q.Set(extra[i], extra[i+1])
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// localPath accepts only same-site absolute paths.
func localPath(s, fallback string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") || strings.HasPrefix(s, "/\\") {
		return fallback
	}
	return s
}
