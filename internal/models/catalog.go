package models

import "github.com/shopspring/decimal"

// PricingCategory is one entry of the read-only pricing catalog.
type PricingCategory struct {
	Key         string          `db:"key" json:"key"`
	DisplayName string          `db:"display_name" json:"display_name"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Description string          `db:"description" json:"description"`
}

// TimeSlot is a selectable pickup window.
type TimeSlot struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// DefaultPricingCategories is served when the pricing_categories table is empty.
var DefaultPricingCategories = []PricingCategory{
	{Key: "mobile_phone", DisplayName: "Mobile Phones", UnitPrice: decimal.NewFromInt(500), Description: "Smartphones, feature phones and tablets"},
	{Key: "laptop", DisplayName: "Laptops", UnitPrice: decimal.NewFromInt(1500), Description: "Notebooks and ultrabooks"},
	{Key: "desktop", DisplayName: "Desktop Computers", UnitPrice: decimal.NewFromInt(2000), Description: "Towers, all-in-ones and servers"},
	{Key: "monitor", DisplayName: "Monitors & TVs", UnitPrice: decimal.NewFromInt(1000), Description: "CRT, LCD and LED screens"},
	{Key: "printer", DisplayName: "Printers & Scanners", UnitPrice: decimal.NewFromInt(800), Description: "Printers, scanners and copiers"},
	{Key: "small_appliance", DisplayName: "Small Appliances", UnitPrice: decimal.NewFromInt(300), Description: "Kettles, irons, toasters and similar"},
	{Key: "large_appliance", DisplayName: "Large Appliances", UnitPrice: decimal.NewFromInt(3000), Description: "Refrigerators, washing machines, air conditioners"},
	{Key: "battery", DisplayName: "Batteries", UnitPrice: decimal.NewFromInt(100), Description: "Household and device batteries"},
	{Key: "cables", DisplayName: "Cables & Accessories", UnitPrice: decimal.NewFromInt(50), Description: "Chargers, cables, keyboards and mice"},
}

// TimeSlots is the fixed set of pickup windows.
var TimeSlots = []TimeSlot{
	{Value: "morning", Label: "Morning (9:00 AM - 12:00 PM)"},
	{Value: "afternoon", Label: "Afternoon (12:00 PM - 3:00 PM)"},
	{Value: "evening", Label: "Evening (3:00 PM - 6:00 PM)"},
}

// IsTimeSlot reports whether value names a known slot.
func IsTimeSlot(value string) bool {
	for _, slot := range TimeSlots {
		if slot.Value == value {
			return true
		}
	}
	return false
}
