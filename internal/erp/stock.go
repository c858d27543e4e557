package erp

import (
	"context"
	"fmt"
)

// stock.go — composed stock-quantity helpers.
// Stock lives in quant records keyed by (product, location). Both helpers
// resolve the single internal-usage location first, then mutate the quant.

// internalLocationID resolves the endpoint's internal stock location.
func (c *Client) internalLocationID(ctx context.Context) (int, error) {
	ids, err := c.Search(ctx, ModelStockLocation, Eq("usage", "internal"), 1)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, opErr(ModelStockLocation, "search", "no internal stock location found")
	}
	return ids[0], nil
}

func (c *Client) findQuant(ctx context.Context, productID, locationID int) (Record, error) {
	quants, err := c.SearchRead(ctx, ModelStockQuant, Domain{
		{"product_id", "=", productID},
		{"location_id", "=", locationID},
	}, []string{"id", "quantity"}, 1)
	if err != nil {
		return nil, err
	}
	if len(quants) == 0 {
		return nil, nil
	}
	return quants[0], nil
}

// ReduceStock subtracts quantity from the product's quant. It returns
// ErrNegativeStock without writing anything when the result would go below
// zero — that would corrupt the authoritative remote ledger.
func (c *Client) ReduceStock(ctx context.Context, productID int, quantity float64) error {
	locationID, err := c.internalLocationID(ctx)
	if err != nil {
		return err
	}

	quant, err := c.findQuant(ctx, productID, locationID)
	if err != nil {
		return err
	}
	if quant == nil {
		return opErr(ModelStockQuant, "search_read",
			fmt.Sprintf("no stock quant for product %d", productID))
	}

	newQty := quant.Float("quantity") - quantity
	if newQty < 0 {
		return fmt.Errorf("%w: product %d has %.2f, requested %.2f",
			ErrNegativeStock, productID, quant.Float("quantity"), quantity)
	}

	return c.Write(ctx, ModelStockQuant, []int{quant.Int("id")},
		map[string]any{"quantity": newQty})
}

// AddStock adds quantity to the product's quant, creating the quant when the
// product has never held stock at this endpoint.
func (c *Client) AddStock(ctx context.Context, productID int, quantity float64) error {
	locationID, err := c.internalLocationID(ctx)
	if err != nil {
		return err
	}

	quant, err := c.findQuant(ctx, productID, locationID)
	if err != nil {
		return err
	}

	if quant != nil {
		return c.Write(ctx, ModelStockQuant, []int{quant.Int("id")},
			map[string]any{"quantity": quant.Float("quantity") + quantity})
	}

	_, err = c.Create(ctx, ModelStockQuant, map[string]any{
		"product_id":  productID,
		"location_id": locationID,
		"quantity":    quantity,
	})
	return err
}
