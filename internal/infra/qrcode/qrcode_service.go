package qrcode

import (
	"net/url"
	"strconv"
	"strings"

	"fieldtrack/internal/domain/geofence"
	"fieldtrack/internal/domain/service"

	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"
)

const geoScheme = "geo:"

type qrcodeService struct {
	size                 int
	errorCorrectionLevel qrcode.RecoveryLevel
}

// NewQRCodeService creates a new QR code service instance
func NewQRCodeService(size int, errorCorrectionLevel string) service.QRCodeService {
	// Set error correction level
	var level qrcode.RecoveryLevel
	switch errorCorrectionLevel {
	case "L":
		level = qrcode.Low
	case "M":
		level = qrcode.Medium
	case "Q":
		level = qrcode.High
	case "H":
		level = qrcode.Highest
	default:
		level = qrcode.Medium
	}

	if size <= 0 {
		size = 256
	}

	return &qrcodeService{
		size:                 size,
		errorCorrectionLevel: level,
	}
}

// GenerateSampleQR encodes an RFC 5870 geo URI, e.g. geo:29.5,-97.5?label=Bob
func (s *qrcodeService) GenerateSampleQR(lat, lon float64, label string) ([]byte, error) {
	if !geofence.ValidCoordinate(lat, lon) {
		return nil, errors.Errorf("invalid coordinate %f,%f", lat, lon)
	}

	qrCode, err := qrcode.New(GeoURI(lat, lon, label), s.errorCorrectionLevel)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create QR code")
	}

	pngBytes, err := qrCode.PNG(s.size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate PNG")
	}

	return pngBytes, nil
}

// ParseSampleQR extracts the position from a geo URI payload
func (s *qrcodeService) ParseSampleQR(qrData string) (lat, lon float64, err error) {
	if !strings.HasPrefix(qrData, geoScheme) {
		return 0, 0, errors.Errorf("invalid QR code payload: %q", qrData)
	}

	coords, _, _ := strings.Cut(strings.TrimPrefix(qrData, geoScheme), "?")
	latText, lonText, ok := strings.Cut(coords, ",")
	if !ok {
		return 0, 0, errors.Errorf("geo uri without longitude: %q", qrData)
	}
	// Drop an optional altitude component.
	lonText, _, _ = strings.Cut(lonText, ",")

	if lat, err = strconv.ParseFloat(latText, 64); err != nil {
		return 0, 0, errors.Wrap(err, "failed to parse latitude")
	}
	if lon, err = strconv.ParseFloat(lonText, 64); err != nil {
		return 0, 0, errors.Wrap(err, "failed to parse longitude")
	}
	if !geofence.ValidCoordinate(lat, lon) {
		return 0, 0, errors.Errorf("coordinate out of range: %f,%f", lat, lon)
	}

	return lat, lon, nil
}

// GeoURI formats a position as a geo URI with an optional label query.
func GeoURI(lat, lon float64, label string) string {
	uri := geoScheme + strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
	if label != "" {
		uri += "?" + url.Values{"label": {label}}.Encode()
	}

	return uri
}
