package erp

import (
	"context"

	"github.com/rs/zerolog/log"
)

// fields.go — capability probe.
// The remote system's product schema drifts between server versions: newer
// releases replaced the 'product'/'consu' type selection and some quantity
// field names. Rather than scattering version checks through the orchestrator,
// the client probes the product model once per session and caches the resolved
// values. Business code only ever sees the fieldMap.

type fieldMap struct {
	// storableType is the product 'type' selection value that keeps stock
	// ('product' on older servers, 'consu' with is_storable on newer ones).
	storableType string
	// hasIsStorable reports whether the boolean is_storable field exists.
	hasIsStorable bool
}

// defaultFieldMap covers current servers when the probe cannot run.
var defaultFieldMap = fieldMap{storableType: "consu", hasIsStorable: true}

func (c *Client) fieldMap(ctx context.Context) fieldMap {
	c.fieldsOnce.Do(func() {
		c.fields = defaultFieldMap

		meta, err := c.FieldsGet(ctx, ModelProduct, []string{"type", "is_storable"})
		if err != nil {
			log.Warn().Err(err).Msg("field probe failed, assuming current schema")
			return
		}

		_, c.fields.hasIsStorable = meta["is_storable"]

		typeMeta, ok := meta["type"]
		if !ok {
			return
		}
		// selection comes back as [[value, label], ...]
		selection, _ := typeMeta["selection"].([]any)
		for _, entry := range selection {
			pair, _ := entry.([]any)
			if len(pair) == 2 && pair[0] == "product" {
				c.fields.storableType = "product"
				break
			}
		}

		log.Debug().
			Str("storable_type", c.fields.storableType).
			Bool("has_is_storable", c.fields.hasIsStorable).
			Msg("erp field probe resolved")
	})
	return c.fields
}

// ProductCreateValues renders product fields for creation on this server
// version, copying name, prices and tracking mode from the source record.
func (c *Client) ProductCreateValues(ctx context.Context, barcode string, source Record) map[string]any {
	fm := c.fieldMap(ctx)
	values := map[string]any{
		"name":             source.Str("name"),
		"barcode":          barcode,
		"standard_price":   source.Float("standard_price"),
		"list_price":       source.Float("list_price"),
		"type":             fm.storableType,
		"tracking":         "none",
		"available_in_pos": true,
	}
	if fm.hasIsStorable {
		values["is_storable"] = true
	}
	return values
}
