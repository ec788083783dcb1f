package service

// QRCodeService renders and parses QR codes pointing at a sample's position
type QRCodeService interface {
	// GenerateSampleQR encodes a geo: URI for the position as a PNG
	GenerateSampleQR(lat, lon float64, label string) ([]byte, error)

	// ParseSampleQR extracts the position from QR payload data
	ParseSampleQR(qrData string) (lat, lon float64, err error)
}
