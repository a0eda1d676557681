package prompts

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Swuzz123/Coffee-Assistant/internal/models"
)

const systemPrompt = `You are a friendly, intelligent, and professional staff member at the most famous and luxurious coffee shop, MT Coffee Shop.

Your role is to:
- Interact warmly with customers.
- Provide personalized recommendations.
- Accurately take and confirm orders.
- Answer questions about the menu, pricing, or order status.
- Use the available tools to search the menu and to place, check, or cancel orders.

The current customer ID is: %s. Always use this ID when a tool asks for customer_id, especially with 'place_order'.

ORDER HANDLING
- Customers may customize their drinks. Always confirm their preferences clearly.
- Interpret shorthand such as "70 sugar, 30 ice" or "70 đường, 30 đá".
- Options the customer does not mention follow the store defaults below.

CUSTOMIZATION OPTIONS
- Milk type: regular milk, low-fat milk, almond milk, soy milk, coconut milk, oat milk.
- Ice level: 0%%, 25%%, 50%%, 75%%, 100%%.
- Sweetness level: 0%%, 25%%, 50%%, 75%%, 100%%.
- Temperature: very hot, hot, warm, cold, very cold.
- Size: small (S), medium (M), large (L).
- Add-ons: whipped cream, caramel sauce, vanilla, cinnamon.

DEFAULTS
- Ice and sweetness default to 100%%.
- Size defaults to M. Size S is %s cheaper than the base price, size L is %s more expensive.
- Temperature defaults to cold.

CONFIRMATION
- Restate the full order (size, ice, sugar, milk, add-ons, temperature, price) before submitting it.
- Call 'place_order' only after the customer explicitly agrees and requests no further changes.
- Use 'cancel_order' when the customer asks to cancel a placed order.

STYLE
- Reply in Vietnamese unless the customer clearly uses another language.
- Be polite, warm and enthusiastic. If a request cannot be fulfilled with the tools, say so politely.
- When suggesting several items, put each on its own bullet with name, price and a short description, e.g.
  - Matcha Latte — 55,000 VND: Thức uống thơm ngon, đầy năng lượng...
  - Bạc Xỉu — 39,000 VND: Hài hòa giữa vị ngọt đầu lưỡi và vị đắng thanh thoát nơi hậu vị...`

const (
	WelcomeMessage = "Chào mừng bạn đã đến với cửa hàng MT Coffee của chúng tôi, không biết tôi có thể giúp gì được cho bạn nhỉ?"

	// FallbackMessage answers a turn whose model output carried no text.
	FallbackMessage = "Xin lỗi, mình chưa hiểu ý bạn lắm. Bạn có thể nói rõ hơn giúp mình không?"

	IterationLimitMessage = "Xin lỗi, yêu cầu này hơi phức tạp nên mình chưa xử lý xong. Bạn có thể nói lại ngắn gọn hơn giúp mình không?"

	UnknownQueryMessage = "Tôi chưa hiểu bạn muốn uống gì. Bạn có thể mô tả rõ hơn không?"

	LookupFailedMessage = "Xin lỗi, hiện tại mình chưa tra cứu được thực đơn. Bạn thử lại sau giúp mình nhé!"

	GoodbyeMessage = "Cảm ơn bạn đã ghé MT Coffee. Hẹn gặp lại!"
)

var statusLabels = map[models.OrderStatus]string{
	models.OrderStatusPending:   "Đang chờ xử lý",
	models.OrderStatusPreparing: "Đang chuẩn bị",
	models.OrderStatusReady:     "Đã sẵn sàng",
	models.OrderStatusCompleted: "Đã hoàn thành",
	models.OrderStatusCancelled: "Đã hủy",
}

var printer = message.NewPrinter(language.English)

// SystemPrompt renders the fixed instruction for one customer.
func SystemPrompt(customerID string, sizeDelta decimal.Decimal) string {
	d := FormatVND(sizeDelta)
	return fmt.Sprintf(systemPrompt, customerID, d, d)
}

// FormatVND renders 78000 as "78,000 VND".
func FormatVND(amount decimal.Decimal) string {
	return printer.Sprintf("%d VND", amount.Round(0).IntPart())
}

// StatusLabel is the customer-facing name of a status.
func StatusLabel(s models.OrderStatus) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// MenuItemLine is the display form of one search result.
func MenuItemLine(item models.MenuItem) string {
	line := fmt.Sprintf("%s — %s", item.Title, FormatVND(item.Price))
	if d := strings.TrimSpace(item.Description); d != "" {
		line += ": " + d
	}
	return line
}

func SubCategoriesMessage(mainCategory string, subs []string) string {
	return fmt.Sprintf("Nhóm %s có các loại: %s. Bạn muốn xem loại nào ạ?", mainCategory, strings.Join(subs, ", "))
}

func NoItemsMessage(keyword string) string {
	return fmt.Sprintf("Hiện tại quán chưa có món nào thuộc nhóm '%s' ạ. Bạn có muốn thử món khác không?", keyword)
}

func ItemNotFoundMessage(name string) string {
	return fmt.Sprintf("Dạ vâng quán mình không có món '%s' này ạ. Bạn có thể order món khác không?", name)
}

func InvalidQuantityMessage(name string, qty int) string {
	return fmt.Sprintf("Số lượng %d cho món '%s' không hợp lệ ạ. Bạn kiểm tra lại giúp mình nhé.", qty, name)
}

// SummaryLine is one line of an order confirmation; Price is the unit price
// after size adjustment.
type SummaryLine struct {
	Title    string
	Quantity int
	Price    decimal.Decimal
}

func OrderPlacedMessage(orderID uint, total decimal.Decimal, lines []SummaryLine) string {
	var b strings.Builder
	b.WriteString("Đơn hàng đã được đặt thành công!\n")
	fmt.Fprintf(&b, "**Mã đơn hàng:** #%d\n", orderID)
	fmt.Fprintf(&b, "**Tổng tiền:** %s\n\n", FormatVND(total))
	b.WriteString("**Chi tiết:**\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "- %s x%d - %s\n", l.Title, l.Quantity, FormatVND(l.Price))
	}
	b.WriteString("\nCảm ơn quý khách! Đơn hàng sẽ sớm được chuẩn bị.")
	return b.String()
}

func PlaceOrderFailedMessage(err error) string {
	return fmt.Sprintf("Có lỗi xảy ra khi đặt hàng: %v", err)
}

func OrderStatusMessage(order *models.Order) string {
	return fmt.Sprintf("**Đơn hàng #%d**\nTrạng thái: %s\nTổng tiền: %s",
		order.ID, StatusLabel(order.Status), FormatVND(order.TotalPrice))
}

func OrderNotFoundMessage(id uint) string {
	return fmt.Sprintf("Không tìm thấy đơn hàng #%d", id)
}

func OrderCancelledMessage(id uint) string {
	return fmt.Sprintf("Đơn hàng #%d đã được hủy thành công.", id)
}

func CannotCancelMessage(id uint, status models.OrderStatus) string {
	return fmt.Sprintf("Không thể hủy đơn hàng #%d (Trạng thái: %s)", id, StatusLabel(status))
}

func CancelFailedMessage(err error) string {
	return fmt.Sprintf("Lỗi khi hủy đơn: %v", err)
}

// ToolFailureMessage is the tool result for a failed or rejected action call.
func ToolFailureMessage(name string, err error) string {
	return fmt.Sprintf("Không thể thực hiện '%s': %v", name, err)
}
