package models

// StatusDisplay is the label and color class rendered for a status value.
type StatusDisplay struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

var unknownStatus = StatusDisplay{Label: "Unknown", Color: "gray"}

var requestStatusDisplay = map[RequestStatus]StatusDisplay{
	RequestStatusPending:   {Label: "Pending", Color: "yellow"},
	RequestStatusAssigned:  {Label: "Assigned", Color: "blue"},
	RequestStatusConfirmed: {Label: "Confirmed", Color: "green"},
	RequestStatusCompleted: {Label: "Completed", Color: "emerald"},
}

var deliveryStatusDisplay = map[DeliveryStatus]StatusDisplay{
	DeliveryStatusPendingDelivery: {Label: "Pending Delivery", Color: "yellow"},
	DeliveryStatusDelivered:       {Label: "Delivered", Color: "blue"},
	DeliveryStatusReceived:        {Label: "Received", Color: "indigo"},
	DeliveryStatusQualityChecked:  {Label: "Quality Checked", Color: "purple"},
	DeliveryStatusProcessing:      {Label: "Processing", Color: "orange"},
	DeliveryStatusProcessed:       {Label: "Processed", Color: "green"},
}

// RequestStatusDisplay maps a request status to its display; unknown values degrade to a generic entry.
func RequestStatusDisplay(status RequestStatus) StatusDisplay {
	if d, ok := requestStatusDisplay[status]; ok {
		return d
	}
	return unknownStatus
}

// DeliveryStatusDisplay maps a delivery status to its display.
func DeliveryStatusDisplay(status DeliveryStatus) StatusDisplay {
	if d, ok := deliveryStatusDisplay[status]; ok {
		return d
	}
	return unknownStatus
}

// StatusDisplays returns every known request and delivery display keyed by status value.
func StatusDisplays() map[string]map[string]StatusDisplay {
	requests := make(map[string]StatusDisplay, len(requestStatusDisplay))
	for k, v := range requestStatusDisplay {
		requests[string(k)] = v
	}
	deliveries := make(map[string]StatusDisplay, len(deliveryStatusDisplay))
	for k, v := range deliveryStatusDisplay {
		deliveries[string(k)] = v
	}
	return map[string]map[string]StatusDisplay{
		"collection_requests": requests,
		"deliveries":          deliveries,
	}
}
