package handler

import (
	"github.com/sweetshop/inventory-service/internal/core/domain"
	"github.com/sweetshop/inventory-service/internal/core/ports"
)

// --- Request → Service input ---

func toCreateInput(req createSweetRequest) ports.CreateItemInput {
	in := ports.CreateItemInput{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}
	if req.Price != nil {
		in.Price = *req.Price
	}
	if req.Quantity != nil {
		in.Quantity = *req.Quantity
	}
	return in
}

func toUpdateInput(req updateSweetRequest) ports.UpdateItemInput {
	return ports.UpdateItemInput{
		Name:        req.Name,
		Category:    req.Category,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}
}

// --- Service result → HTTP response ---

func toSweetResponse(it domain.Item) sweetResponse {
	return sweetResponse{
		ID:          it.ID,
		Name:        it.Name,
		Category:    it.Category,
		Price:       it.Price,
		Quantity:    it.Quantity,
		Description: it.Description,
		ImageURL:    it.ImageURL,
		CreatedAt:   it.CreatedAt.UTC(),
		UpdatedAt:   it.UpdatedAt.UTC(),
	}
}

func toSweetList(items []domain.Item) []sweetResponse {
	out := make([]sweetResponse, len(items))
	for i, it := range items {
		out[i] = toSweetResponse(it)
	}
	return out
}
