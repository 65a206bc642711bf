// Package docs registers the OpenAPI description served under /swagger.
package docs

import "github.com/swaggo/swag"

// @title Food Ordering API
// @version 1.0
// @description Menus, carts, checkout and live order boards for restaurants.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/auth/signup": {"post": {"tags": ["Auth"], "summary": "Create an account", "responses": {"201": {"description": "Created"}, "409": {"description": "Email already registered"}}}},
        "/auth/signin": {"post": {"tags": ["Auth"], "summary": "Sign in with email and password", "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid credentials"}, "403": {"description": "Email not confirmed"}}}},
        "/restaurants": {"get": {"tags": ["Restaurants"], "summary": "Browse restaurants", "parameters": [{"name": "filter", "in": "query", "type": "string", "enum": ["nearby", "popular", "offers"]}, {"name": "lat", "in": "query", "type": "number"}, {"name": "lng", "in": "query", "type": "number"}], "responses": {"200": {"description": "OK"}}}},
        "/restaurants/{id}/menu": {"get": {"tags": ["Menu"], "summary": "A restaurant's menu", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/restaurants/{id}/orders": {"get": {"tags": ["Orders"], "security": [{"BearerAuth": []}], "summary": "A restaurant's orders, newest first", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "403": {"description": "Not the owner"}}}},
        "/cart/items": {"post": {"tags": ["Cart"], "security": [{"BearerAuth": []}], "summary": "Add one unit of a menu item", "responses": {"200": {"description": "OK"}, "409": {"description": "Cart holds another restaurant's items"}}}},
        "/checkout": {"post": {"tags": ["Checkout"], "security": [{"BearerAuth": []}], "summary": "Place the cart as an order", "responses": {"201": {"description": "Order placed"}, "202": {"description": "Payment verification required"}, "400": {"description": "Invalid form"}, "502": {"description": "Order could not be saved"}}}},
        "/orders/{id}/status": {"patch": {"tags": ["Orders"], "security": [{"BearerAuth": []}], "summary": "Move an order to its next status", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "409": {"description": "Illegal transition"}}}},
        "/menu": {"post": {"tags": ["Menu"], "security": [{"BearerAuth": []}], "summary": "Add a menu item", "responses": {"201": {"description": "Created"}, "400": {"description": "Missing name, price or category"}}}},
        "/menu/{id}/toggle": {"post": {"tags": ["Menu"], "security": [{"BearerAuth": []}], "summary": "Flip a menu item's availability", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}}
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "Food Ordering API",
	Description:      "Menus, carts, checkout and live order boards for restaurants.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
