// Package docs holds the generated OpenAPI document served by the swagger UI.
// Regenerate with `swag init -g cmd/api/main.go` after changing annotations.
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
        "/api/auth/exchange": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Exchange the identity credential for a tenant-scoped access token",
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "403": {"description": "Forbidden"},
                    "503": {"description": "Service Unavailable"}
                }
            }
        },
        "/api/me": {
            "get": {
                "produces": ["application/json"],
                "tags": ["identity"],
                "summary": "Current principal, memberships and active tenant scope",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/bff/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["bff"],
                "summary": "Authenticate and open a server-side session",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/bff/auth/logout": {
            "post": {
                "tags": ["bff"],
                "summary": "Evict the session and expire the cookie",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/bff/auth/session": {
            "get": {
                "produces": ["application/json"],
                "tags": ["bff"],
                "summary": "Session status",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "AnyBank Identity Platform API",
	Description:      "Multi-tenant identity and authorization service: BFF sessions, tenant context resolution, risk scoring, policy checks, and token exchange.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
