// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/api/main.go -o docs
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
        "/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Login user",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/service.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/logout": {
            "post": {
                "tags": ["auth"],
                "summary": "Logout",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Get current user",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/fiscal-rules": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["fiscal-rules"],
                "summary": "List fiscal rules",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "companyId", "in": "query"},
                    {"type": "string", "name": "uf", "in": "query"},
                    {"type": "string", "name": "regime", "in": "query"},
                    {"type": "string", "name": "mode", "in": "query"},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["fiscal-rules"],
                "summary": "Create a fiscal rule",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/fiscal.Draft"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/fiscal-rules/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["fiscal-rules"],
                "summary": "Get a fiscal rule",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["fiscal-rules"],
                "summary": "Replace a fiscal rule",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/fiscal.Draft"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["fiscal-rules"],
                "summary": "Delete a fiscal rule",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/fiscal-rules/resolve": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["fiscal-rules"],
                "summary": "Resolve the fiscal treatment",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/service.ResolveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/fiscal-rules/simulate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["fiscal-rules"],
                "summary": "Simulate a resolution for a product",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/service.SimulateRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/fiscal-rules/validate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["fiscal-rules"],
                "summary": "Dry-run rule validation",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/fiscal.Draft"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/fiscal-rules/import": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["fiscal-rules"],
                "summary": "Import fiscal rules",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/service.ImportRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/fiscal-rules/defaults": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["fiscal-rules"],
                "summary": "Default code table",
                "parameters": [
                    {"type": "string", "name": "regime", "in": "query"},
                    {"type": "string", "name": "mode", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/companies": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["companies"],
                "summary": "List companies",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["companies"],
                "summary": "Create a company",
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/products": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["products"],
                "summary": "List products",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["products"],
                "summary": "Create a product",
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/audit-logs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["audit"],
                "summary": "List audit logs",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        }
    },
    "definitions": {
        "response.Response": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "status_code": {"type": "integer"},
                "data": {},
                "error": {"type": "string"},
                "details": {},
                "pagination": {"$ref": "#/definitions/pagination.Meta"}
            }
        },
        "pagination.Meta": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "total": {"type": "integer"},
                "totalPages": {"type": "integer"}
            }
        },
        "fiscal.Draft": {
            "type": "object",
            "properties": {
                "companyId": {"type": "string"},
                "uf": {"type": "string"},
                "regime": {"type": "string", "enum": ["NORMAL", "SIMPLES"]},
                "mode": {"type": "string", "enum": ["TRIBUTADO", "ICMS_ST", "ISENTO"]},
                "cst": {"type": "string"},
                "csosn": {"type": "string"},
                "icmsRate": {"type": "number"},
                "mvaRate": {"type": "number"},
                "stReduction": {"type": "number"},
                "stRate": {"type": "number"},
                "reason": {"type": "string"},
                "priority": {"type": "number"},
                "description": {"type": "string"}
            }
        },
        "service.ImportRequest": {
            "type": "object",
            "required": ["rules"],
            "properties": {
                "rules": {"type": "array", "items": {"$ref": "#/definitions/fiscal.Draft"}}
            }
        },
        "service.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "service.ResolveRequest": {
            "type": "object",
            "required": ["uf", "regime"],
            "properties": {
                "uf": {"type": "string"},
                "regime": {"type": "string"},
                "companyId": {"type": "string"}
            }
        },
        "service.SimulateRequest": {
            "type": "object",
            "required": ["uf", "regime"],
            "properties": {
                "uf": {"type": "string"},
                "regime": {"type": "string"},
                "companyId": {"type": "string"},
                "productId": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Fiscal Back Office API",
	Description:      "ICMS fiscal rule management and resolution for multi-company back offices.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
