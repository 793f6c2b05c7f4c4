// Package docs registers the OpenAPI document served under /swagger. It is
// maintained by hand alongside the handler annotations.
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/common.Response"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/common.ProblemDetails"}}
                }
            }
        },
        "/payments": {
            "post": {
                "description": "Creates a payment for the user and responds once it is approved",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Create a payment",
                "parameters": [
                    {
                        "description": "Payment request",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/payment.CreatePaymentRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/payment.PaymentEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/common.ProblemDetails"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/common.ProblemDetails"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/common.ProblemDetails"}}
                }
            }
        },
        "/payments/ids": {
            "get": {
                "description": "Comma separated ids of every user that has a payment",
                "produces": ["text/plain"],
                "tags": ["payments"],
                "summary": "List user ids",
                "responses": {
                    "200": {"description": "a,b,c", "schema": {"type": "string"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/common.ProblemDetails"}}
                }
            }
        },
        "/payments/users": {
            "get": {
                "description": "Returns the payments of the listed users; unknown users are omitted",
                "produces": ["application/json", "application/x-ndjson"],
                "tags": ["payments"],
                "summary": "Get payments by user ids",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Comma separated user ids",
                        "name": "ids",
                        "in": "query",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/payment.PaymentListEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/common.ProblemDetails"}}
                }
            }
        },
        "/payments/{userId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Get a payment",
                "parameters": [
                    {"type": "string", "description": "User id", "name": "userId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/payment.PaymentEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/common.ProblemDetails"}}
                }
            }
        }
    },
    "definitions": {
        "common.ProblemDetails": {
            "type": "object",
            "properties": {
                "detail": {"type": "string"},
                "errors": {},
                "instance": {"type": "string"},
                "status": {"type": "integer"},
                "title": {"type": "string"},
                "type": {"type": "string"}
            }
        },
        "common.Response": {
            "type": "object",
            "properties": {
                "data": {},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "payment.CreatePaymentRequest": {
            "type": "object",
            "required": ["userId"],
            "properties": {
                "userId": {"type": "string"}
            }
        },
        "payment.PaymentResponse": {
            "type": "object",
            "properties": {
                "createdAt": {"type": "string"},
                "id": {"type": "string"},
                "status": {"type": "string", "enum": ["PENDING", "APPROVED"]},
                "updatedAt": {"type": "string"},
                "userId": {"type": "string"}
            }
        },
        "payment.PaymentEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/payment.PaymentResponse"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "payment.PaymentListEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/payment.PaymentResponse"}},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:3000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Payflow API",
	Description:      "Create payments and wait for their asynchronous approval.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
