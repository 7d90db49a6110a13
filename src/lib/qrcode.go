package lib

import (
	"log"
	"os"
	"path"

	"github.com/yeqown/go-qrcode"
)

// RenderQRCode writes a PNG encoding the given payload into tempdir and
// returns the file path. The payload is the ticket's opaque code only.
func RenderQRCode(payload, filename string) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	tempdir := path.Join(wd, "tmp")
	if err := os.MkdirAll(tempdir, 0o755); err != nil {
		return "", err
	}
	qrc, err := qrcode.New(payload)
	if err != nil {
		return "", err
	}
	filepath := path.Join(tempdir, filename+".png")
	if err := qrc.Save(filepath); err != nil {
		log.Printf("Could not save qrcode to file [%s]: %s\n", filepath, err.Error())
		return "", err
	}
	return filepath, nil
}
