// Package docs registers the OpenAPI document served by gin-swagger.
// Regenerate with: swag init -g cmd/server/main.go -o docs
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
        "/personas": {
            "post": {
                "description": "Creates an Echo persona for an existing user. The newest persona becomes the user's current one.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Personas"
                ],
                "summary": "Create a persona",
                "operationId": "createPersona",
                "parameters": [
                    {
                        "description": "Persona payload",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.CreatePersonaRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/domain.Persona"
                        }
                    },
                    "400": {
                        "description": "Bad request or unknown user",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Store unavailable",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/personas/{id}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Personas"
                ],
                "summary": "Get a persona",
                "operationId": "getPersona",
                "parameters": [
                    {
                        "type": "string",
                        "format": "uuid",
                        "description": "Persona ID (UUID)",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/domain.Persona"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Persona not found",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/personas/{id}/messages": {
            "get": {
                "description": "Returns the last ` + "`" + `limit` + "`" + ` messages of a persona, oldest first. Supports weak ETag via If-None-Match and may return 304.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Messages"
                ],
                "summary": "Conversation history",
                "operationId": "listMessages",
                "parameters": [
                    {
                        "type": "string",
                        "format": "uuid",
                        "description": "Persona ID (UUID)",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "maximum": 200,
                        "type": "integer",
                        "default": 10,
                        "description": "Number of messages",
                        "name": "limit",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Return 304 if ETag matches",
                        "name": "If-None-Match",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.ListMessagesResponse"
                        },
                        "headers": {
                            "ETag": {
                                "type": "string",
                                "description": "Weak ETag for current result"
                            }
                        }
                    },
                    "304": {
                        "description": "Not Modified",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Store unavailable",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            },
            "post": {
                "description": "Appends one message. Content is trimmed and line endings and blank-line runs are normalized before storage, so the returned content may differ from the request. Supports idempotency via the Idempotency-Key header (same key, same result).",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Messages"
                ],
                "summary": "Append a message to a persona's conversation",
                "operationId": "postMessage",
                "parameters": [
                    {
                        "type": "string",
                        "example": "7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab",
                        "description": "Idempotency key for safe retries (UUID recommended)",
                        "name": "Idempotency-Key",
                        "in": "header"
                    },
                    {
                        "type": "string",
                        "format": "uuid",
                        "description": "Persona ID (UUID)",
                        "name": "id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Message payload",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.PostMessageRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Replayed message",
                        "schema": {
                            "$ref": "#/definitions/domain.Message"
                        }
                    },
                    "201": {
                        "description": "Stored message",
                        "schema": {
                            "$ref": "#/definitions/domain.Message"
                        }
                    },
                    "400": {
                        "description": "Bad request, invalid role or unknown persona",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Store unavailable",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/personas/{id}/voice-model": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Personas"
                ],
                "summary": "Voice model linked to a persona",
                "operationId": "getPersonaVoiceModel",
                "parameters": [
                    {
                        "type": "string",
                        "format": "uuid",
                        "description": "Persona ID (UUID)",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/domain.VoiceModel"
                        }
                    },
                    "404": {
                        "description": "No linked voice model",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/synthesize": {
            "post": {
                "description": "Sends text to the voice provider and stores the resulting audio. The response points at the stored file.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Speech"
                ],
                "summary": "Synthesize speech",
                "operationId": "synthesize",
                "parameters": [
                    {
                        "description": "Synthesis payload",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.SynthesizeRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.SynthesizeResponse"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "429": {
                        "description": "Rate limited",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Provider error",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Provider not configured",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "504": {
                        "description": "Provider timeout",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/users": {
            "post": {
                "description": "Returns the user with the given external id, creating it on first sight. Concurrent calls converge on one record.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Users"
                ],
                "summary": "Get or create a user",
                "operationId": "createUser",
                "parameters": [
                    {
                        "description": "User identity",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.CreateUserRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/domain.User"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Store unavailable",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/users/{externalId}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Users"
                ],
                "summary": "Look up a user",
                "operationId": "getUser",
                "parameters": [
                    {
                        "type": "string",
                        "description": "External identity",
                        "name": "externalId",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/domain.User"
                        }
                    },
                    "404": {
                        "description": "User not found",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/users/{externalId}/persona": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Users"
                ],
                "summary": "Current persona of a user",
                "operationId": "getCurrentPersona",
                "parameters": [
                    {
                        "type": "string",
                        "description": "External identity",
                        "name": "externalId",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/domain.Persona"
                        }
                    },
                    "404": {
                        "description": "User or persona not found",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/users/{externalId}/personas": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Users"
                ],
                "summary": "Personas of a user",
                "operationId": "listUserPersonas",
                "parameters": [
                    {
                        "type": "string",
                        "description": "External identity",
                        "name": "externalId",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.ListPersonasResponse"
                        }
                    },
                    "404": {
                        "description": "User not found",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/users/{externalId}/voice-models": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "Users"
                ],
                "summary": "Voice models of a user",
                "description": "Newest first. Supports weak ETag via If-None-Match and may return 304.",
                "operationId": "listUserVoiceModels",
                "parameters": [
                    {
                        "type": "string",
                        "description": "External identity",
                        "name": "externalId",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Return 304 if ETag matches",
                        "name": "If-None-Match",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.ListVoiceModelsResponse"
                        },
                        "headers": {
                            "ETag": {
                                "type": "string",
                                "description": "Weak ETag for current result"
                            }
                        }
                    },
                    "304": {
                        "description": "Not Modified",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "404": {
                        "description": "User not found",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/voice-models/upload": {
            "post": {
                "description": "Streams the file to the voice provider. When user_id is supplied the resulting voice model is recorded for that user (and optionally linked to persona_id).",
                "consumes": [
                    "multipart/form-data"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "VoiceModels"
                ],
                "summary": "Upload reference media to clone a voice",
                "operationId": "uploadReference",
                "parameters": [
                    {
                        "type": "file",
                        "description": "Reference audio or video",
                        "name": "audio",
                        "in": "formData",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Display name (derived from the filename when empty)",
                        "name": "name",
                        "in": "formData"
                    },
                    {
                        "type": "string",
                        "description": "Owning user id",
                        "name": "user_id",
                        "in": "formData"
                    },
                    {
                        "type": "string",
                        "description": "Persona to link",
                        "name": "persona_id",
                        "in": "formData"
                    },
                    {
                        "type": "string",
                        "description": "audio or video (detected when empty)",
                        "name": "file_kind",
                        "in": "formData"
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/handlers.UploadReferenceResponse"
                        }
                    },
                    "400": {
                        "description": "Bad request",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Voice model already recorded",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "413": {
                        "description": "Upload too large",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "502": {
                        "description": "Provider error",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/voice-models/{modelId}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "VoiceModels"
                ],
                "summary": "Get a voice model",
                "operationId": "getVoiceModel",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Provider model id",
                        "name": "modelId",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/domain.VoiceModel"
                        }
                    },
                    "404": {
                        "description": "Voice model not found",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            },
            "delete": {
                "description": "Removes the local record only; the provider's model is left untouched.",
                "tags": [
                    "VoiceModels"
                ],
                "summary": "Delete a voice model record",
                "operationId": "deleteVoiceModel",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Provider model id",
                        "name": "modelId",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "404": {
                        "description": "Voice model not found",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/voice-models/{modelId}/persona": {
            "put": {
                "consumes": [
                    "application/json"
                ],
                "tags": [
                    "VoiceModels"
                ],
                "summary": "Link a voice model to a persona",
                "operationId": "linkVoiceModel",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Provider model id",
                        "name": "modelId",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Target persona",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.LinkVoiceModelRequest"
                        }
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "400": {
                        "description": "Bad request or unknown persona",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Voice model not found",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "domain.Message": {
            "type": "object",
            "properties": {
                "content": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "id": {
                    "type": "string"
                },
                "persona_id": {
                    "type": "string"
                },
                "role": {
                    "type": "string",
                    "enum": [
                        "user",
                        "assistant"
                    ]
                }
            }
        },
        "domain.Persona": {
            "type": "object",
            "properties": {
                "behavior_prompt": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "id": {
                    "type": "string"
                },
                "name": {
                    "type": "string",
                    "example": "Nova"
                },
                "updated_at": {
                    "type": "string"
                },
                "user_id": {
                    "type": "string"
                },
                "voice_model_id": {
                    "type": "string"
                }
            }
        },
        "domain.User": {
            "type": "object",
            "properties": {
                "created_at": {
                    "type": "string"
                },
                "email": {
                    "type": "string",
                    "example": "ada@example.com"
                },
                "external_id": {
                    "type": "string",
                    "example": "auth0|abc123"
                },
                "id": {
                    "type": "string",
                    "example": "0b7f9f3e-2a43-4d4e-9d61-0e3a4bb4e9a1"
                },
                "updated_at": {
                    "type": "string"
                }
            }
        },
        "domain.VoiceModel": {
            "type": "object",
            "properties": {
                "created_at": {
                    "type": "string"
                },
                "file_kind": {
                    "type": "string",
                    "enum": [
                        "audio",
                        "video"
                    ]
                },
                "id": {
                    "type": "string"
                },
                "model_id": {
                    "type": "string",
                    "example": "7f92f8afb8ec43bf81429cc1c9199cb1"
                },
                "name": {
                    "type": "string"
                },
                "persona_id": {
                    "type": "string"
                },
                "source_file": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                },
                "user_id": {
                    "type": "string"
                }
            }
        },
        "handlers.CreatePersonaRequest": {
            "type": "object",
            "required": [
                "behavior_prompt",
                "name",
                "user_id",
                "voice_model_id"
            ],
            "properties": {
                "behavior_prompt": {
                    "type": "string",
                    "example": "Warm, curious, answers briefly."
                },
                "name": {
                    "type": "string",
                    "example": "Nova"
                },
                "user_id": {
                    "type": "string"
                },
                "voice_model_id": {
                    "type": "string",
                    "example": "placeholder"
                }
            }
        },
        "handlers.CreateUserRequest": {
            "type": "object",
            "required": [
                "email",
                "external_id"
            ],
            "properties": {
                "email": {
                    "type": "string",
                    "example": "ada@example.com"
                },
                "external_id": {
                    "type": "string",
                    "example": "auth0|abc123"
                }
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string",
                    "example": "not_found"
                },
                "message": {
                    "type": "string",
                    "example": "resource not found"
                },
                "request_id": {
                    "type": "string",
                    "example": "123e4567-e89b-12d3-a456-426614174000"
                }
            }
        },
        "handlers.LinkVoiceModelRequest": {
            "type": "object",
            "required": [
                "persona_id"
            ],
            "properties": {
                "persona_id": {
                    "type": "string"
                }
            }
        },
        "handlers.ListMessagesResponse": {
            "type": "object",
            "properties": {
                "messages": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/domain.Message"
                    }
                }
            }
        },
        "handlers.ListPersonasResponse": {
            "type": "object",
            "properties": {
                "personas": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/domain.Persona"
                    }
                }
            }
        },
        "handlers.ListVoiceModelsResponse": {
            "type": "object",
            "properties": {
                "voice_models": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/domain.VoiceModel"
                    }
                }
            }
        },
        "handlers.PostMessageRequest": {
            "type": "object",
            "required": [
                "content",
                "role"
            ],
            "properties": {
                "content": {
                    "type": "string",
                    "example": "Tell me about your day."
                },
                "role": {
                    "type": "string",
                    "enum": [
                        "user",
                        "assistant"
                    ],
                    "example": "user"
                }
            }
        },
        "handlers.SynthesizeRequest": {
            "type": "object",
            "required": [
                "text"
            ],
            "properties": {
                "format": {
                    "type": "string",
                    "enum": [
                        "wav",
                        "mp3",
                        "opus",
                        "pcm"
                    ],
                    "example": "wav"
                },
                "reference_id": {
                    "type": "string"
                },
                "text": {
                    "type": "string",
                    "example": "Hello from your Echo."
                },
                "voice_id": {
                    "type": "string"
                }
            }
        },
        "handlers.SynthesizeResponse": {
            "type": "object",
            "properties": {
                "audio_url": {
                    "type": "string"
                },
                "format": {
                    "type": "string",
                    "example": "wav"
                },
                "success": {
                    "type": "boolean",
                    "example": true
                }
            }
        },
        "handlers.UploadReferenceResponse": {
            "type": "object",
            "properties": {
                "file_kind": {
                    "type": "string",
                    "enum": [
                        "audio",
                        "video"
                    ]
                },
                "model_id": {
                    "type": "string"
                },
                "name": {
                    "type": "string",
                    "example": "Reference Audio"
                },
                "success": {
                    "type": "boolean",
                    "example": true
                },
                "voice_model": {
                    "$ref": "#/definitions/domain.VoiceModel"
                }
            }
        }
    },
    "securityDefinitions": {
        "UserID": {
            "type": "apiKey",
            "name": "X-User-ID",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Echo Voice Backend API",
	Description:      "Users, Echo personas, conversation history and voice models, with text-to-speech and voice cloning through a third-party provider.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
