package response

type Error struct {
	Error string `json:"error"`
}

type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Price     int64  `json:"price"`
}

type Order struct {
	OrderID   string      `json:"order_id"`
	UserID    string      `json:"user_id"`
	Status    string      `json:"status"`
	Items     []OrderItem `json:"items"`
	Total     int64       `json:"total"`
	CreatedAt string      `json:"created_at"`
}

type Wallet struct {
	WalletID   string `json:"wallet_id"`
	UserID     string `json:"user_id"`
	TotalPoint int64  `json:"total_point"`
	Version    int64  `json:"version"`
}
