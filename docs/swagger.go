package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/session": {
            "get": {
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Signed-in user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SessionResponse"}},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/session/ws-token": {
            "post": {
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Issue a token for the /ws push channel",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "Push channel disabled"}
                }
            }
        },
        "/logout": {
            "post": {
                "tags": ["session"],
                "summary": "Log out and stop the session",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/views": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Role view of the reconciled orders",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ViewResponse"}}
                }
            }
        },
        "/orders": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "All orders in the local snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/handlers.OrderResponse"}}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Place an order from the cart",
                "parameters": [
                    {"in": "body", "name": "order", "required": true, "schema": {"$ref": "#/definitions/handlers.PlaceOrderRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.OrderResponse"}},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/orders/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "One order",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.OrderResponse"}},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/orders/{id}/{action}": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Accept, pick up, deliver or cancel an order",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"enum": ["accept", "pickup", "deliver", "cancel"], "type": "string", "name": "action", "in": "path", "required": true},
                    {"in": "body", "name": "body", "schema": {"$ref": "#/definitions/handlers.ActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.OrderResponse"}},
                    "400": {"description": "Bad Request"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/orders/{id}/rate": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Rate a delivered order",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "rating", "required": true, "schema": {"$ref": "#/definitions/handlers.RateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.OrderResponse"}},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/menu": {
            "get": {
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Menu, optionally filtered by category",
                "parameters": [{"type": "string", "name": "category", "in": "query"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/cart": {
            "get": {
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Cart contents and totals",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.CartResponse"}}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Add a menu item to the cart",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.CartResponse"}},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/cart/{id}": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Set an item quantity",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.CartResponse"}}}
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["cart"],
                "summary": "Remove an item",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.CartResponse"}}}
            }
        },
        "/admin/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Platform statistics",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/users": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Registered users",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/menu": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Create a menu item",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}
            }
        },
        "/admin/menu/{id}": {
            "delete": {
                "tags": ["admin"],
                "summary": "Delete a menu item",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        }
    },
    "definitions": {
        "handlers.SessionResponse": {
            "type": "object",
            "properties": {
                "user": {"type": "object"},
                "expiresAt": {"type": "string"}
            }
        },
        "handlers.OrderResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "shortRef": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "accepted", "picked_up", "delivered", "cancelled"]},
                "riderId": {"type": "string"},
                "totalAmount": {"type": "number"},
                "actions": {"type": "array", "items": {"type": "string"}},
                "canRate": {"type": "boolean"},
                "rated": {"type": "boolean"}
            }
        },
        "handlers.ViewResponse": {
            "type": "object",
            "properties": {
                "role": {"type": "string"},
                "tabs": {"type": "object"},
                "todayEarnings": {"type": "string"},
                "totalEarnings": {"type": "string"},
                "rating": {"type": "string"},
                "ratingCount": {"type": "integer"}
            }
        },
        "handlers.PlaceOrderRequest": {
            "type": "object",
            "properties": {
                "pickup": {"type": "string"},
                "dropoff": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "handlers.ActionRequest": {
            "type": "object",
            "properties": {"reason": {"type": "string"}}
        },
        "handlers.RateRequest": {
            "type": "object",
            "properties": {
                "rating": {"type": "integer", "minimum": 1, "maximum": 5},
                "comment": {"type": "string"}
            }
        },
        "handlers.CartResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"type": "object"}},
                "subtotal": {"type": "string"},
                "deliveryFee": {"type": "string"},
                "total": {"type": "string"}
            }
        }
    }
}`

// @title FastBite Client API
// @version 1.0
// @description Local dashboard API over a signed-in food delivery session
// @host localhost:8080
// @BasePath /api/v1
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "FastBite Client API",
	Description:      "Local dashboard API over a signed-in food delivery session",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
