package infra

import (
	"encoding/xml"
)

// xml.go — audit XML document for prepare/confirm calls.
// Plain element-per-field serialization, no schema versioning: the document is
// an attachment for the branch upload and the history record, not an exchange
// format.

// XMLProduct is one line of the audit document.
type XMLProduct struct {
	Name          string  `xml:"name"`
	Barcode       string  `xml:"barcode"`
	Quantity      int     `xml:"quantity"`
	StandardPrice float64 `xml:"standard_price"`
	ListPrice     float64 `xml:"list_price"`
}

type xmlTransfer struct {
	XMLName  xml.Name     `xml:"transfer"`
	Products []XMLProduct `xml:"product"`
}

// GenerateTransferXML renders the audit document for the given lines.
func GenerateTransferXML(products []XMLProduct) (string, error) {
	doc := xmlTransfer{Products: products}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return xml.Header + string(out), nil
}
