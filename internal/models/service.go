package models

import "fmt"

type ServiceCategory string

const (
	// CategoryCleaning почасовая уборка: base_price + price_per_hour × часы
	CategoryCleaning ServiceCategory = "cleaning"
	// CategoryAirConditioner чистка кондиционеров: base_price + price_per_hour × количество
	CategoryAirConditioner ServiceCategory = "ac"
	// CategoryWashingMachine чистка стиральных машин: сумма по корзине машин
	CategoryWashingMachine ServiceCategory = "washing_machine"
)

func (c ServiceCategory) IsValid() bool {
	switch c {
	case CategoryCleaning, CategoryAirConditioner, CategoryWashingMachine:
		return true
	}
	return false
}

func ParseServiceCategory(s string) (ServiceCategory, error) {
	c := ServiceCategory(s)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid service category: %s", s)
	}
	return c, nil
}

// Service is the backend-owned pricing record of a bookable service.
// Nil price fields mean the backend did not send them.
type Service struct {
	ID             string          `json:"id"`
	Name           string          `json:"name,omitempty"`
	Category       ServiceCategory `json:"category"`
	BasePrice      *float64        `json:"base_price,omitempty"`
	PricePerHour   *float64        `json:"price_per_hour,omitempty"`
	TopLoadPrice   *float64        `json:"top_load,omitempty"`
	FrontLoadPrice *float64        `json:"front_load,omitempty"`
}

// Price returns a pointer to v, handy for building services in code.
func Price(v float64) *float64 {
	return &v
}
