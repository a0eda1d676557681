// Package tools holds the fixed set of actions the model may request. Every
// call ends in a plain tool message: failures are turned into text so the
// conversation can carry on.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/sirupsen/logrus"

	"github.com/Swuzz123/Coffee-Assistant/internal/catalog"
	"github.com/Swuzz123/Coffee-Assistant/internal/intent"
	"github.com/Swuzz123/Coffee-Assistant/internal/logging"
	"github.com/Swuzz123/Coffee-Assistant/internal/models"
	"github.com/Swuzz123/Coffee-Assistant/internal/orders"
)

var ErrUnknownAction = errors.New("unknown action")

// ExecutionError is an action call that could not be carried out: unknown
// name, arguments rejected by the schema, or a failing handler.
type ExecutionError struct {
	Action string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("action %s: %v", e.Action, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Classifier maps a free-text query to a vocabulary entry.
type Classifier interface {
	Classify(query string) intent.Classification
}

// Menu is the catalog lookup behind search_menu.
type Menu interface {
	GetExactItem(ctx context.Context, title string) (models.MenuItem, error)
	GetTopItemsFromSubCategory(ctx context.Context, subCategory string, limit int) ([]models.MenuItem, error)
	GetTopItemsFromMainCategory(ctx context.Context, mainCategory string, limit int) (catalog.MainCategoryResult, error)
}

// Orders is the order transaction behind the order actions.
type Orders interface {
	PlaceOrder(ctx context.Context, customerID string, lines []orders.LineRequest) (*orders.Confirmation, error)
	GetOrderStatus(ctx context.Context, id uint) (*models.Order, error)
	CancelOrder(ctx context.Context, id uint) (*models.Order, error)
}

// Invocation is what a handler sees of one call.
type Invocation struct {
	CustomerID string
	Args       json.RawMessage
}

type handler func(ctx context.Context, inv Invocation) (string, error)

type action struct {
	schema models.ActionSchema
	valid  *jsonschema.Schema
	run    handler
}

type Registry struct {
	actions    map[string]*action
	classifier Classifier
	menu       Menu
	orders     Orders
	limit      int
	log        logrus.FieldLogger
}

// NewRegistry compiles the argument schemas of the four actions.
func NewRegistry(classifier Classifier, menu Menu, ord Orders, log logrus.FieldLogger) (*Registry, error) {
	r := &Registry{
		actions:    make(map[string]*action),
		classifier: classifier,
		menu:       menu,
		orders:     ord,
		limit:      catalog.DefaultLimit,
		log:        logging.Component(log, "tools"),
	}

	defs := []struct {
		name, description string
		schema            json.RawMessage
		run               handler
	}{
		{SearchMenu, searchMenuDescription, searchMenuSchema, r.searchMenu},
		{PlaceOrder, placeOrderDescription, placeOrderSchema, r.placeOrder},
		{GetOrderStatus, getOrderStatusDescription, orderIDSchema, r.getOrderStatus},
		{CancelOrder, cancelOrderDescription, orderIDSchema, r.cancelOrder},
	}
	for _, d := range defs {
		compiled, err := compileSchema(d.name, d.schema)
		if err != nil {
			return nil, err
		}
		r.actions[d.name] = &action{
			schema: models.ActionSchema{Name: d.name, Description: d.description, Parameters: d.schema},
			valid:  compiled,
			run:    d.run,
		}
	}
	return r, nil
}

func compileSchema(name string, raw json.RawMessage) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s schema: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	url := name + ".json"
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add %s schema: %w", name, err)
	}
	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}
	return schema, nil
}

// Definitions lists the actions for the model, sorted by name.
func (r *Registry) Definitions() []models.ActionSchema {
	out := make([]models.ActionSchema, 0, len(r.actions))
	for _, a := range r.actions {
		out = append(out, a.schema)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs one requested action and answers it with a tool message. It
// never returns an error: unknown names, invalid arguments, handler errors and
// panics all become the message content.
func (r *Registry) Execute(ctx context.Context, customerID string, call models.ToolCall) models.Message {
	content, err := r.execute(ctx, customerID, call)
	if err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"action":  call.Name,
			"call_id": call.ID,
		}).Warn("Action failed")
		content = toolFailure(call.Name, err)
	}
	return models.NewToolMessage(call.ID, call.Name, content)
}

func (r *Registry) execute(ctx context.Context, customerID string, call models.ToolCall) (content string, err error) {
	a, ok := r.actions[call.Name]
	if !ok {
		return "", &ExecutionError{Action: call.Name, Err: ErrUnknownAction}
	}

	args := call.Arguments
	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage("{}")
	}
	payload, err := jsonschema.UnmarshalJSON(bytes.NewReader(args))
	if err != nil {
		return "", &ExecutionError{Action: call.Name, Err: fmt.Errorf("arguments are not valid JSON: %w", err)}
	}
	if err := a.valid.Validate(payload); err != nil {
		return "", &ExecutionError{Action: call.Name, Err: fmt.Errorf("invalid arguments: %w", err)}
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithFields(logrus.Fields{
				"action": call.Name,
				"panic":  rec,
				"stack":  string(debug.Stack()),
			}).Error("Action panicked")
			err = &ExecutionError{Action: call.Name, Err: fmt.Errorf("internal error: %v", rec)}
		}
	}()

	r.log.WithFields(logrus.Fields{
		"action":      call.Name,
		"customer_id": customerID,
	}).Debug("Executing action")

	content, err = a.run(ctx, Invocation{CustomerID: customerID, Args: args})
	if err != nil {
		return "", &ExecutionError{Action: call.Name, Err: err}
	}
	return content, nil
}
