// Package docs registers the hand-maintained OpenAPI description served by gin-swagger.
// Keep the paths in step with the routes in internal/handlers.
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
		"/purchase-requests": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"purchase-requests"
				],
				"summary": "Create purchase request",
				"parameters": [
					{
						"type": "string",
						"description": "Client retry key",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/dto.CreatePurchaseRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/dto.PurchaseRequestView"
						}
					},
					"400": {
						"description": "Invalid input",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/purchase-requests/{id}": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"purchase-requests"
				],
				"summary": "Get purchase request",
				"parameters": [
					{
						"type": "string",
						"description": "Purchase request ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.PurchaseRequestView"
						}
					},
					"403": {
						"description": "Not allowed to view",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					},
					"404": {
						"description": "Not found",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				}
			},
			"put": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"purchase-requests"
				],
				"summary": "Edit purchase request",
				"parameters": [
					{
						"type": "string",
						"description": "Purchase request ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Client retry key",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/dto.EditPurchaseRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.PurchaseRequestView"
						}
					},
					"409": {
						"description": "Concurrent modification",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					},
					"422": {
						"description": "Not editable in its status",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/purchase-requests/{id}/submit": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"purchase-requests"
				],
				"summary": "Submit purchase request",
				"parameters": [
					{
						"type": "string",
						"description": "Purchase request ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Client retry key",
						"name": "Idempotency-Key",
						"in": "header"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.PurchaseRequestView"
						}
					},
					"403": {
						"description": "Not allowed",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					},
					"422": {
						"description": "Not allowed in its status",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				}
			}
		},
		"/purchase-requests/{id}/approve": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"purchase-requests"
				],
				"summary": "Approve purchase request",
				"parameters": [
					{
						"type": "string",
						"description": "Purchase request ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Client retry key",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": false,
						"schema": {
							"$ref": "#/definitions/dto.ApproveRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.PurchaseRequestView"
						}
					},
					"403": {
						"description": "Not allowed",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					},
					"422": {
						"description": "Not allowed in its status",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/purchase-requests/{id}/reject": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"purchase-requests"
				],
				"summary": "Reject purchase request",
				"parameters": [
					{
						"type": "string",
						"description": "Purchase request ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Client retry key",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/dto.ReasonRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.PurchaseRequestView"
						}
					},
					"403": {
						"description": "Not allowed",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					},
					"422": {
						"description": "Not allowed in its status",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/purchase-requests/{id}/return": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"purchase-requests"
				],
				"summary": "Return purchase request",
				"parameters": [
					{
						"type": "string",
						"description": "Purchase request ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Client retry key",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/dto.ReasonRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.PurchaseRequestView"
						}
					},
					"403": {
						"description": "Not allowed",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					},
					"422": {
						"description": "Not allowed in its status",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/purchase-requests/{id}/resubmit": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"purchase-requests"
				],
				"summary": "Resubmit purchase request",
				"parameters": [
					{
						"type": "string",
						"description": "Purchase request ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Client retry key",
						"name": "Idempotency-Key",
						"in": "header"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.PurchaseRequestView"
						}
					},
					"403": {
						"description": "Not allowed",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					},
					"422": {
						"description": "Not allowed in its status",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				}
			}
		},
		"/purchase-requests/{id}/cancel": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"purchase-requests"
				],
				"summary": "Cancel purchase request",
				"parameters": [
					{
						"type": "string",
						"description": "Purchase request ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Client retry key",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": false,
						"schema": {
							"$ref": "#/definitions/dto.CancelRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.PurchaseRequestView"
						}
					},
					"403": {
						"description": "Not allowed",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					},
					"422": {
						"description": "Not allowed in its status",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/purchase-requests/{id}/permissions/{action}": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"purchase-requests"
				],
				"summary": "Check whether the caller may perform an action",
				"parameters": [
					{
						"type": "string",
						"description": "Purchase request ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Boundary action",
						"name": "action",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.PermissionView"
						}
					},
					"400": {
						"description": "Unknown action",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					},
					"404": {
						"description": "Not found",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				}
			}
		},
		"/applications": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"applications"
				],
				"summary": "Create application",
				"parameters": [
					{
						"type": "string",
						"description": "Client retry key",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/dto.CreateApplication"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/dto.ApplicationView"
						}
					},
					"400": {
						"description": "Invalid input",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/applications/{id}": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"applications"
				],
				"summary": "Get application",
				"parameters": [
					{
						"type": "string",
						"description": "Application ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.ApplicationView"
						}
					},
					"403": {
						"description": "Not allowed to view",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					},
					"404": {
						"description": "Not found",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				}
			},
			"put": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"applications"
				],
				"summary": "Edit application",
				"parameters": [
					{
						"type": "string",
						"description": "Application ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Client retry key",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/dto.EditApplication"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.ApplicationView"
						}
					},
					"409": {
						"description": "Concurrent modification",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					},
					"422": {
						"description": "Not editable in its status",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/applications/{id}/submit": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"applications"
				],
				"summary": "Submit application",
				"parameters": [
					{
						"type": "string",
						"description": "Application ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Client retry key",
						"name": "Idempotency-Key",
						"in": "header"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.ApplicationView"
						}
					},
					"403": {
						"description": "Not allowed",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					},
					"422": {
						"description": "Not allowed in its status",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				}
			}
		},
		"/applications/{id}/approve": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"applications"
				],
				"summary": "Approve application",
				"parameters": [
					{
						"type": "string",
						"description": "Application ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Client retry key",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": false,
						"schema": {
							"$ref": "#/definitions/dto.ApproveRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.ApplicationView"
						}
					},
					"403": {
						"description": "Not allowed",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					},
					"422": {
						"description": "Not allowed in its status",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/applications/{id}/reject": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"applications"
				],
				"summary": "Reject application",
				"parameters": [
					{
						"type": "string",
						"description": "Application ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Client retry key",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/dto.ReasonRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.ApplicationView"
						}
					},
					"403": {
						"description": "Not allowed",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					},
					"422": {
						"description": "Not allowed in its status",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/applications/{id}/return": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"applications"
				],
				"summary": "Return application",
				"parameters": [
					{
						"type": "string",
						"description": "Application ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Client retry key",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/dto.ReasonRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.ApplicationView"
						}
					},
					"403": {
						"description": "Not allowed",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					},
					"422": {
						"description": "Not allowed in its status",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/applications/{id}/resubmit": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"applications"
				],
				"summary": "Resubmit application",
				"parameters": [
					{
						"type": "string",
						"description": "Application ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Client retry key",
						"name": "Idempotency-Key",
						"in": "header"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.ApplicationView"
						}
					},
					"403": {
						"description": "Not allowed",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					},
					"422": {
						"description": "Not allowed in its status",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				}
			}
		},
		"/applications/{id}/cancel": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"applications"
				],
				"summary": "Cancel application",
				"parameters": [
					{
						"type": "string",
						"description": "Application ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Client retry key",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": false,
						"schema": {
							"$ref": "#/definitions/dto.CancelRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.ApplicationView"
						}
					},
					"403": {
						"description": "Not allowed",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					},
					"422": {
						"description": "Not allowed in its status",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/applications/{id}/permissions/{action}": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"applications"
				],
				"summary": "Check whether the caller may perform an action",
				"parameters": [
					{
						"type": "string",
						"description": "Application ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Boundary action",
						"name": "action",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.PermissionView"
						}
					},
					"400": {
						"description": "Unknown action",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					},
					"404": {
						"description": "Not found",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				}
			}
		},
		"/workflow-definitions/{applicationType}": {
			"put": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"workflow-definitions"
				],
				"summary": "Define the workflow of an application type",
				"parameters": [
					{
						"type": "string",
						"description": "Application type",
						"name": "applicationType",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Client retry key",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/dto.DefineWorkflow"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.WorkflowDefinitionView"
						}
					},
					"400": {
						"description": "Invalid steps",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					},
					"403": {
						"description": "Admin only",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				]
			},
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"workflow-definitions"
				],
				"summary": "Get the active workflow of an application type",
				"parameters": [
					{
						"type": "string",
						"description": "Application type",
						"name": "applicationType",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.WorkflowDefinitionView"
						}
					},
					"404": {
						"description": "No active definition",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				}
			}
		},
		"/audit-log/{entityType}/{entityId}": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"audit-log"
				],
				"summary": "List the audit trail of an entity",
				"parameters": [
					{
						"type": "string",
						"description": "Entity type",
						"name": "entityType",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Entity ID",
						"name": "entityId",
						"in": "path",
						"required": true
					},
					{
						"type": "integer",
						"description": "Page size (1-200)",
						"name": "limit",
						"in": "query"
					},
					{
						"type": "string",
						"description": "Token from the previous page",
						"name": "pageToken",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/dto.AuditLogPage"
						}
					},
					"400": {
						"description": "Invalid query",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					},
					"403": {
						"description": "Admin only",
						"schema": {
							"$ref": "#/definitions/dto.ErrorResponse"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"dto.ErrorResponse": {
			"type": "object",
			"properties": {
				"error": {
					"type": "string"
				},
				"kind": {
					"type": "string"
				}
			}
		},
		"dto.PermissionView": {
			"type": "object",
			"properties": {
				"entityType": {
					"type": "string"
				},
				"entityId": {
					"type": "string"
				},
				"action": {
					"type": "string"
				},
				"allowed": {
					"type": "boolean"
				},
				"reason": {
					"type": "string"
				}
			}
		},
		"dto.EntityRef": {
			"type": "object",
			"properties": {}
		},
		"dto.ApproveRequest": {
			"type": "object",
			"properties": {
				"comment": {
					"type": "string"
				}
			}
		},
		"dto.ReasonRequest": {
			"type": "object",
			"properties": {
				"reason": {
					"type": "string"
				}
			}
		},
		"dto.CancelRequest": {
			"type": "object",
			"properties": {
				"reason": {
					"type": "string"
				}
			}
		},
		"dto.LineItemInput": {
			"type": "object",
			"properties": {
				"description": {
					"type": "string"
				},
				"quantity": {
					"type": "string"
				},
				"unitPrice": {
					"type": "string"
				}
			}
		},
		"dto.CreatePurchaseRequest": {
			"type": "object",
			"properties": {
				"title": {
					"type": "string"
				},
				"description": {
					"type": "string"
				},
				"items": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/dto.LineItemInput"
					}
				}
			}
		},
		"dto.EditPurchaseRequest": {
			"type": "object",
			"properties": {
				"expectedVersion": {
					"type": "integer"
				},
				"title": {
					"type": "string"
				},
				"description": {
					"type": "string"
				},
				"items": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/dto.LineItemInput"
					}
				}
			}
		},
		"dto.PurchaseRequestView": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"tenantId": {
					"type": "string"
				},
				"requesterId": {
					"type": "string"
				},
				"title": {
					"type": "string"
				},
				"description": {
					"type": "string"
				},
				"status": {
					"type": "string"
				},
				"currentStep": {
					"type": "integer"
				},
				"totalAmount": {
					"type": "string"
				},
				"version": {
					"type": "integer"
				},
				"createdAt": {
					"type": "string"
				},
				"lastUpdatedAt": {
					"type": "string"
				}
			}
		},
		"dto.CreateApplication": {
			"type": "object",
			"properties": {
				"applicationType": {
					"type": "string"
				},
				"title": {
					"type": "string"
				},
				"content": {
					"type": "string"
				}
			}
		},
		"dto.EditApplication": {
			"type": "object",
			"properties": {
				"expectedVersion": {
					"type": "integer"
				},
				"title": {
					"type": "string"
				},
				"content": {
					"type": "string"
				}
			}
		},
		"dto.ApplicationView": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"tenantId": {
					"type": "string"
				},
				"applicantId": {
					"type": "string"
				},
				"applicantName": {
					"type": "string"
				},
				"applicationType": {
					"type": "string"
				},
				"title": {
					"type": "string"
				},
				"content": {
					"type": "string"
				},
				"status": {
					"type": "string"
				},
				"currentStep": {
					"type": "integer"
				},
				"totalSteps": {
					"type": "integer"
				},
				"version": {
					"type": "integer"
				},
				"createdAt": {
					"type": "string"
				},
				"lastUpdatedAt": {
					"type": "string"
				}
			}
		},
		"dto.WorkflowStepInput": {
			"type": "object",
			"properties": {
				"stepNumber": {
					"type": "integer"
				},
				"role": {
					"type": "string"
				},
				"name": {
					"type": "string"
				}
			}
		},
		"dto.DefineWorkflow": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string"
				},
				"steps": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/dto.WorkflowStepInput"
					}
				}
			}
		},
		"dto.WorkflowDefinitionView": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"tenantId": {
					"type": "string"
				},
				"applicationType": {
					"type": "string"
				},
				"name": {
					"type": "string"
				},
				"isActive": {
					"type": "boolean"
				},
				"version": {
					"type": "integer"
				},
				"createdAt": {
					"type": "string"
				},
				"createdBy": {
					"type": "string"
				}
			}
		},
		"dto.AuditLogEntryView": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"entityType": {
					"type": "string"
				},
				"entityId": {
					"type": "string"
				},
				"action": {
					"type": "string"
				},
				"userId": {
					"type": "string"
				},
				"timestampUtc": {
					"type": "string"
				}
			}
		},
		"dto.AuditLogPage": {
			"type": "object",
			"properties": {
				"entries": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/dto.AuditLogEntryView"
					}
				},
				"nextPageToken": {
					"type": "string"
				}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"description": "Type \"Bearer\" followed by a space and JWT token.",
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
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Procureflow API",
	Description:      "Purchase requests and configurable approval applications.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
