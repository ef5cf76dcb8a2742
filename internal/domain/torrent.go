package domain

// Torrent is one entry of the qBittorrent /api/v2/torrents/info listing.
// Only Name and Progress feed the report.
type Torrent struct {
	Hash     string  `json:"hash"`
	Name     string  `json:"name"`
	Progress float64 `json:"progress"`
	State    string  `json:"state"`
	Size     int64   `json:"size"`
	DlSpeed  int64   `json:"dlspeed"`
}
