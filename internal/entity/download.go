package entity

// DownloadRequest asks the dispatcher to save a resume under a serial-number namespace.
type DownloadRequest struct {
	URL          string `json:"url"`
	SerialNumber int    `json:"serialNumber"`
	Filename     string `json:"filename"`
}
