package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/kentra/backoffice/internal/db"
	"github.com/kentra/backoffice/internal/models"
)

// GET /appointments/{id}/qr.png
func (a *App) AppointmentQR(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	// ensure the appointment exists
	var appt models.Appointment
	if err := db.Conn().First(&appt, id).Error; err != nil {
		http.NotFound(w, r)
		return
	}

	// Encode a URL so scanning opens check-in directly
	base := strings.TrimRight(a.BaseURL, "/")
	if base == "" {
		base = "http://" + r.Host
	}
	target := base + "/checkin/" + strconv.FormatUint(uint64(appt.ID), 10)

	png, err := qrcode.Encode(target, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "failed to generate qr", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
