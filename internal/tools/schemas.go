package tools

import "encoding/json"

// Action names the model may request. The set is closed.
const (
	SearchMenu     = "search_menu"
	PlaceOrder     = "place_order"
	GetOrderStatus = "get_order_status"
	CancelOrder    = "cancel_order"
)

const searchMenuDescription = `Search the menu to find drinks or food based on customer requests.
Use this tool when customers ask about what's available, want recommendations, or ask about specific items.
Returns a list of display lines: "Name — price: description".`

const placeOrderDescription = `Place a new order after the customer confirms all details.
ONLY use this tool when the customer explicitly confirms the order.
customer_id is the customer's ID given in the system instruction.
Each item has item_name, quantity and optional customizations such as
{"size": "L", "ice": "50%", "sugar": "70%", "milk_type": "oat milk"}.
Returns a confirmation with the order ID and total price.`

const getOrderStatusDescription = `Check the status of an existing order.
Use this when the customer asks about their order status.`

const cancelOrderDescription = `Cancel an existing order.
Only use this when the customer explicitly requests to cancel.
Orders that are completed or already cancelled cannot be cancelled.`

var searchMenuSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string", "minLength": 1, "description": "What the customer is looking for, in their own words."}
  },
  "required": ["query"]
}`)

var placeOrderSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "customer_id": {"type": "string", "description": "The customer's ID."},
    "items": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "properties": {
          "item_name": {"type": "string", "minLength": 1, "description": "Menu item name."},
          "quantity": {"type": "integer", "minimum": 1, "description": "Number of cups or pieces."},
          "customizations": {
            "type": "object",
            "description": "Options such as size (S, M, L), ice, sugar, milk_type, temperature, add_ons.",
            "properties": {
              "size": {"type": "string", "enum": ["S", "M", "L", "s", "m", "l"]}
            }
          }
        },
        "required": ["item_name"]
      }
    }
  },
  "required": ["items"]
}`)

var orderIDSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "order_id": {
      "type": "integer",
      "minimum": 1,
      "description": "The order ID."
    }
  },
  "required": ["order_id"]
}`)
