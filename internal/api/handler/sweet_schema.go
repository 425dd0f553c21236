package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error  string       `json:"error"`
	Fields []fieldIssue `json:"fields,omitempty"`
}

type fieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Request types ---

type createSweetRequest struct {
	Name        string   `json:"name"        validate:"required"`
	Category    string   `json:"category"    validate:"required"`
	Price       *float64 `json:"price"       validate:"required"`
	Quantity    *int     `json:"quantity"    validate:"required"`
	Description string   `json:"description"`
	ImageURL    string   `json:"image_url"`
}

// updateSweetRequest uses pointers so absent JSON fields stay nil.
type updateSweetRequest struct {
	Name        *string  `json:"name"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price"`
	Quantity    *int     `json:"quantity"`
	Description *string  `json:"description"`
	ImageURL    *string  `json:"image_url"`
}

type restockRequest struct {
	Quantity *int `json:"quantity"`
}

// --- Response types ---

type sweetResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type stockResponse struct {
	Message     string `json:"message"`
	NewQuantity int    `json:"new_quantity"`
}
