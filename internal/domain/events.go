package domain

// Топики рассылки: персонал и клиенты подписаны на свои топики,
// приватные ответы уходят в топик сессии.
const (
	TopicStaff    = "staff-channel"
	TopicCustomer = "customer-channel"
)

// SessionTopic адресный топик одной подключённой сессии
func SessionTopic(sessionID string) string { return "session:" + sessionID }

// Имена событий на проводе, входящие и исходящие.
const (
	EventCheckDiscountCode   = "check_discount_code"
	EventNewOrderRequest     = "new_order_request"
	EventStaffRequestPayment = "staff_request_payment"
	EventStaffConfirmPayment = "staff_confirm_payment"

	EventDiscountResult    = "discount_result"
	EventUpdateStaffOrders = "update_staff_orders"
	EventOrderSuccess      = "order_success_response"
	EventShowCustomerQR    = "show_customer_qr"
	EventPaymentSuccess    = "payment_success"
)

// StaffOrderNotice извещение персонала о новом заказе
type StaffOrderNotice struct {
	ID       int64   `json:"id"`
	Customer string  `json:"customer"`
	Details  string  `json:"details"`
	Total    float64 `json:"total"`
	Time     string  `json:"time"`
	Discount float64 `json:"discount"`
}

// OrderAck приватное подтверждение сессии, отправившей заказ
type OrderAck struct {
	Msg string `json:"msg"`
}

// BillItem строка платёжного извещения; текст кастомизации складывается
// в имя в скобках
type BillItem struct {
	Name     string  `json:"name"`
	Qty      int64   `json:"qty"`
	Subtotal float64 `json:"subtotal"`
}

// PaymentNotice извещение клиентских сессий: показать счёт и QR
type PaymentNotice struct {
	Total    float64    `json:"total"`
	RawTotal float64    `json:"raw_total"`
	Discount float64    `json:"discount"`
	Items    []BillItem `json:"items"`
}

// DiscountResult приватный ответ на проверку кода скидки
type DiscountResult struct {
	Valid   bool    `json:"valid"`
	Percent float64 `json:"percent,omitempty"`
	Code    string  `json:"code,omitempty"`
	Msg     string  `json:"msg,omitempty"`
}
