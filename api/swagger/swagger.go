package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "E-Waste Pickup API",
        "description": "Pickup requests, collector assignment, delivery confirmation and collector earnings",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Registration and login"},
        {"name": "Catalog", "description": "Pricing, time slots and status labels"},
        {"name": "Collection Requests", "description": "Pickup submission and assignment"},
        {"name": "Deliveries", "description": "Hand-off to recycling centers"},
        {"name": "Earnings", "description": "Collector commission ledger"},
        {"name": "Profiles", "description": "Account approval"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register profile",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate profile",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Account not active", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current profile",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/catalog/pricing": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Pricing categories",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/catalog/time-slots": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Pickup time slots",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/catalog/statuses": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Status labels and colors",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/pricing/quote": {
            "post": {
                "tags": ["Catalog"],
                "summary": "Price an item list",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/QuoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown category", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/collection-requests": {
            "get": {
                "tags": ["Collection Requests"],
                "summary": "List collection requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Collection Requests"],
                "summary": "Submit a pickup request",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "multipart/form-data"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitCollectionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Photo upload failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/collection-requests/{id}": {
            "get": {
                "tags": ["Collection Requests"],
                "summary": "Collection request detail",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/collection-requests/{id}/assign": {
            "post": {
                "tags": ["Collection Requests"],
                "summary": "Assign a collector",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignCollectorRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Request already confirmed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invalid center or collector", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/deliveries": {
            "get": {
                "tags": ["Deliveries"],
                "summary": "List deliveries",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Deliveries"],
                "summary": "Start a delivery",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateDeliveryRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Request not assigned or delivery exists", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/deliveries/{id}/status": {
            "patch": {
                "tags": ["Deliveries"],
                "summary": "Advance a delivery",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateDeliveryStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/deliveries/{id}/confirm": {
            "post": {
                "tags": ["Deliveries"],
                "summary": "Confirm a delivery",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/ConfirmDeliveryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not this center's delivery", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/earnings": {
            "get": {
                "tags": ["Earnings"],
                "summary": "Collector earnings",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "collector_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["pending", "paid"]},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/earnings/statements": {
            "post": {
                "tags": ["Earnings"],
                "summary": "Render an earnings statement",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/StatementRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/earnings/statements/download": {
            "get": {
                "tags": ["Earnings"],
                "summary": "Download a statement",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Statement file"},
                    "401": {"description": "Invalid token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Statement expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/profiles": {
            "get": {
                "tags": ["Profiles"],
                "summary": "List profiles",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "role", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/profiles/{id}/review": {
            "post": {
                "tags": ["Profiles"],
                "summary": "Approve or reject a profile",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewProfileRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Profile not awaiting approval", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["email", "password", "full_name", "role"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 8},
                "full_name": {"type": "string"},
                "role": {"type": "string", "enum": ["PUBLIC", "COLLECTOR", "RECYCLING_CENTER"]},
                "phone": {"type": "string"},
                "address": {"type": "string"},
                "facility_name": {"type": "string"},
                "facility_capacity": {"type": "integer"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "ItemLine": {
            "type": "object",
            "required": ["category", "quantity"],
            "properties": {
                "category": {"type": "string"},
                "quantity": {"type": "integer", "minimum": 1}
            }
        },
        "QuoteRequest": {
            "type": "object",
            "required": ["items"],
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/ItemLine"}}
            }
        },
        "SubmitCollectionRequest": {
            "type": "object",
            "required": ["items", "preferred_date", "time_slot", "contact_name", "contact_phone", "address"],
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/ItemLine"}},
                "preferred_date": {"type": "string", "format": "date"},
                "time_slot": {"type": "string", "enum": ["morning", "afternoon", "evening"]},
                "contact_name": {"type": "string"},
                "contact_phone": {"type": "string"},
                "address": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "AssignCollectorRequest": {
            "type": "object",
            "required": ["collector_id"],
            "properties": {
                "recycling_center_id": {"type": "string"},
                "collector_id": {"type": "string"}
            }
        },
        "CreateDeliveryRequest": {
            "type": "object",
            "required": ["collection_request_id"],
            "properties": {
                "collection_request_id": {"type": "string"}
            }
        },
        "UpdateDeliveryStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["delivered", "received", "quality_checked", "processing"]}
            }
        },
        "ConfirmDeliveryRequest": {
            "type": "object",
            "properties": {
                "notes": {"type": "string", "maxLength": 1000}
            }
        },
        "StatementRequest": {
            "type": "object",
            "properties": {
                "collector_id": {"type": "string"},
                "from": {"type": "string", "format": "date"},
                "to": {"type": "string", "format": "date"},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            }
        },
        "ReviewProfileRequest": {
            "type": "object",
            "required": ["decision"],
            "properties": {
                "decision": {"type": "string", "enum": ["approve", "reject"]}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "field": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
