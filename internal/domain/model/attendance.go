package model

import "time"

// ClockInRequest is the payload for a clock-in submission. Selfie carries the
// capture flow's image as a base64 string; the capture UI is responsible for
// producing it.
type ClockInRequest struct {
	ShiftID         string    `json:"shift_id"`
	Selfie          string    `json:"selfie"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	GPSAccuracy     float64   `json:"gps_accuracy,omitempty"`
	DeviceID        string    `json:"device_id,omitempty"`
	WifiSSID        string    `json:"wifi_ssid,omitempty"`
	WifiBSSID       string    `json:"wifi_bssid,omitempty"`
	ClientTimestamp time.Time `json:"client_timestamp"`
	LivenessPassed  bool      `json:"liveness_passed"`
	FaceMatchScore  float64   `json:"face_match_score,omitempty"`
	IsMockLocation  bool      `json:"is_mock_location"`
	GeofenceID      string    `json:"geofence_id,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

// Offline converts a clock-in that could not be delivered into the offline
// submission shape. The client timestamp doubles as the recorded clock-in
// time, and the record date is derived from it.
func (r ClockInRequest) Offline() OfflineAttendance {
	return OfflineAttendance{
		ShiftID:         r.ShiftID,
		Selfie:          r.Selfie,
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
		GPSAccuracy:     r.GPSAccuracy,
		DeviceID:        r.DeviceID,
		WifiSSID:        r.WifiSSID,
		WifiBSSID:       r.WifiBSSID,
		ClientTimestamp: r.ClientTimestamp,
		LivenessPassed:  r.LivenessPassed,
		FaceMatchScore:  r.FaceMatchScore,
		IsMockLocation:  r.IsMockLocation,
		GeofenceID:      r.GeofenceID,
		Date:            r.ClientTimestamp.UTC().Format("2006-01-02"),
		ClockInTime:     r.ClientTimestamp,
		Notes:           r.Notes,
	}
}

// ClockOutRequest is the payload for a clock-out submission. It references an
// existing server-side record, so it cannot be queued offline.
type ClockOutRequest struct {
	RecordID        string    `json:"record_id"`
	Selfie          string    `json:"selfie,omitempty"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	GPSAccuracy     float64   `json:"gps_accuracy,omitempty"`
	ClientTimestamp time.Time `json:"client_timestamp"`
	Notes           string    `json:"notes,omitempty"`
}

// OfflineAttendance is the payload persisted in the offline queue and later
// delivered through the offline-sync endpoint. It is a clock-in plus the
// client-recorded date and clock-in time the backend needs for clock-skew
// and duplicate detection. The integrity token is computed over this struct
// and travels beside it, never inside it.
type OfflineAttendance struct {
	ShiftID         string    `json:"shift_id"`
	Selfie          string    `json:"selfie"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	GPSAccuracy     float64   `json:"gps_accuracy,omitempty"`
	DeviceID        string    `json:"device_id,omitempty"`
	WifiSSID        string    `json:"wifi_ssid,omitempty"`
	WifiBSSID       string    `json:"wifi_bssid,omitempty"`
	ClientTimestamp time.Time `json:"client_timestamp"`
	LivenessPassed  bool      `json:"liveness_passed"`
	FaceMatchScore  float64   `json:"face_match_score,omitempty"`
	IsMockLocation  bool      `json:"is_mock_location"`
	GeofenceID      string    `json:"geofence_id,omitempty"`
	Date            string    `json:"date"`
	ClockInTime     time.Time `json:"clock_in_time"`
	Notes           string    `json:"notes,omitempty"`
}

// AttendanceRecord is the backend's view of a created or updated attendance
// record, as returned by the clock-in, clock-out, and offline-sync endpoints.
type AttendanceRecord struct {
	ID                string     `json:"id"`
	Date              string     `json:"date"`
	Status            string     `json:"status"`
	ClockInTime       *time.Time `json:"clock_in_time"`
	ClockOutTime      *time.Time `json:"clock_out_time"`
	IsOfflineRecord   bool       `json:"is_offline_record"`
	IsValidated       bool       `json:"is_validated"`
	IsSynced          bool       `json:"is_synced"`
	ClockSkewDetected bool       `json:"clock_skew_detected"`
	DurationHours     float64    `json:"duration_hours"`
}
