package services

import "time"

// SetNow pins the clock used to name uploads.
func (m *MediaService) SetNow(now func() time.Time) { m.now = now }
