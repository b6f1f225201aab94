package http

import (
	"encoding/base64"
	"errors"
	"strconv"
)

var errBadCursor = errors.New("invalid cursor")

// encodeCursor empacota o offset como cursor opaco
func encodeCursor(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

// decodeCursor desfaz o cursor; qualquer coisa que não decodifique para
// um inteiro não negativo é erro do caller
func decodeCursor(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return 0, errBadCursor
	}
	offset, err := strconv.Atoi(string(raw))
	if err != nil || offset < 0 {
		return 0, errBadCursor
	}
	return offset, nil
}
