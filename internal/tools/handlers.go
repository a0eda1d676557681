package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Swuzz123/Coffee-Assistant/internal/catalog"
	"github.com/Swuzz123/Coffee-Assistant/internal/intent"
	"github.com/Swuzz123/Coffee-Assistant/internal/models"
	"github.com/Swuzz123/Coffee-Assistant/internal/orders"
	"github.com/Swuzz123/Coffee-Assistant/internal/prompts"
)

type searchMenuArgs struct {
	Query string `json:"query"`
}

type placeOrderArgs struct {
	CustomerID string               `json:"customer_id"`
	Items      []orders.LineRequest `json:"items"`
}

type orderIDArgs struct {
	OrderID uint `json:"order_id"`
}

func decodeArgs(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

func (r *Registry) searchMenu(ctx context.Context, inv Invocation) (string, error) {
	var args searchMenuArgs
	if err := decodeArgs(inv.Args, &args); err != nil {
		return "", err
	}

	lines, err := r.search(ctx, args.Query)
	if err != nil {
		var lookupErr *catalog.LookupError
		if !errors.As(err, &lookupErr) {
			return "", err
		}
		lines = []string{prompts.LookupFailedMessage}
	}

	out, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}
	return string(out), nil
}

func (r *Registry) search(ctx context.Context, query string) ([]string, error) {
	c := r.classifier.Classify(query)
	r.log.WithFields(logrus.Fields{
		"query":   query,
		"kind":    c.Kind,
		"keyword": c.Keyword,
	}).Debug("Query classified")

	switch c.Kind {
	case intent.KindItem:
		item, err := r.menu.GetExactItem(ctx, c.Keyword)
		if errors.Is(err, catalog.ErrNotFound) {
			return []string{prompts.ItemNotFoundMessage(c.Keyword)}, nil
		}
		if err != nil {
			return nil, err
		}
		return []string{prompts.MenuItemLine(item)}, nil

	case intent.KindSubCategory:
		items, err := r.menu.GetTopItemsFromSubCategory(ctx, c.Keyword, r.limit)
		if err != nil {
			return nil, err
		}
		return itemLines(items, c.Keyword), nil

	case intent.KindMainCategory:
		res, err := r.menu.GetTopItemsFromMainCategory(ctx, c.Keyword, r.limit)
		if err != nil {
			return nil, err
		}
		if len(res.SubCategories) > 0 {
			return []string{prompts.SubCategoriesMessage(c.Keyword, res.SubCategories)}, nil
		}
		return itemLines(res.Items, c.Keyword), nil

	default:
		return []string{prompts.UnknownQueryMessage}, nil
	}
}

func itemLines(items []models.MenuItem, keyword string) []string {
	if len(items) == 0 {
		return []string{prompts.NoItemsMessage(keyword)}
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, prompts.MenuItemLine(it))
	}
	return lines
}

func (r *Registry) placeOrder(ctx context.Context, inv Invocation) (string, error) {
	var args placeOrderArgs
	if err := decodeArgs(inv.Args, &args); err != nil {
		return "", err
	}

	// The session's customer wins over whatever id the model filled in.
	customerID := inv.CustomerID
	if customerID == "" {
		customerID = args.CustomerID
	} else if args.CustomerID != "" && args.CustomerID != customerID {
		r.log.WithFields(logrus.Fields{
			"session_customer": customerID,
			"model_customer":   args.CustomerID,
		}).Warn("Ignoring customer_id supplied by the model")
	}

	conf, err := r.orders.PlaceOrder(ctx, customerID, args.Items)
	if err != nil {
		var notFound *orders.ItemNotFoundError
		var badQty *orders.InvalidQuantityError
		switch {
		case errors.As(err, &notFound):
			return prompts.ItemNotFoundMessage(notFound.Name), nil
		case errors.As(err, &badQty):
			return prompts.InvalidQuantityMessage(badQty.Name, badQty.Quantity), nil
		default:
			r.log.WithError(err).WithField("customer_id", customerID).Error("Order placement failed")
			return prompts.PlaceOrderFailedMessage(err), nil
		}
	}

	summary := make([]prompts.SummaryLine, 0, len(conf.Lines))
	for _, l := range conf.Lines {
		summary = append(summary, prompts.SummaryLine{Title: l.Item.Title, Quantity: l.Quantity, Price: l.UnitPrice})
	}
	return prompts.OrderPlacedMessage(conf.OrderID, conf.TotalPrice, summary), nil
}

func (r *Registry) getOrderStatus(ctx context.Context, inv Invocation) (string, error) {
	var args orderIDArgs
	if err := decodeArgs(inv.Args, &args); err != nil {
		return "", err
	}

	order, err := r.orders.GetOrderStatus(ctx, args.OrderID)
	if errors.Is(err, orders.ErrOrderNotFound) {
		return prompts.OrderNotFoundMessage(args.OrderID), nil
	}
	if err != nil {
		return "", err
	}
	return prompts.OrderStatusMessage(order), nil
}

func (r *Registry) cancelOrder(ctx context.Context, inv Invocation) (string, error) {
	var args orderIDArgs
	if err := decodeArgs(inv.Args, &args); err != nil {
		return "", err
	}

	_, err := r.orders.CancelOrder(ctx, args.OrderID)
	var terminal *orders.AlreadyTerminalError
	switch {
	case err == nil:
		return prompts.OrderCancelledMessage(args.OrderID), nil
	case errors.Is(err, orders.ErrOrderNotFound):
		return prompts.OrderNotFoundMessage(args.OrderID), nil
	case errors.As(err, &terminal):
		return prompts.CannotCancelMessage(args.OrderID, terminal.Status), nil
	default:
		r.log.WithError(err).WithField("order_id", args.OrderID).Error("Cancellation failed")
		return prompts.CancelFailedMessage(err), nil
	}
}

func toolFailure(name string, err error) string {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		err = execErr.Err
	}
	return prompts.ToolFailureMessage(name, err)
}
