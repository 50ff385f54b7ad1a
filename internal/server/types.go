package server

import (
	to "github.com/d-kimuson/ts-type-expand/internal/typeobject"
)

// Response is the body of every endpoint. Exactly one of Data and Error is
// set, matching Success.
type Response[T any] struct {
	Success bool       `json:"success"`
	Data    T          `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed request. Reason is one of the engine
// failure reasons, "invalidRequest" or "internal".
type ErrorBody struct {
	Reason  string            `json:"reason"`
	Meta    map[string]string `json:"meta,omitempty"`
	Message string            `json:"message,omitempty"`
}

const (
	reasonInvalidRequest = "invalidRequest"
	reasonInternal       = "internal"
)

type IsActivatedResponse struct {
	IsActivated bool `json:"isActivated"`
}

// TypeFromPosRequest addresses a 0-based line and UTF-16 character.
type TypeFromPosRequest struct {
	FilePath  string `json:"filePath" schema:"filePath" binding:"required"`
	Line      int    `json:"line" schema:"line" binding:"min=0"`
	Character int    `json:"character" schema:"character" binding:"min=0"`
}

type TypeFromPosResponse struct {
	DeclareName string      `json:"declareName,omitempty"`
	Type        to.Envelope `json:"type"`
}

type ObjectPropsRequest struct {
	StoreKey string `json:"storeKey" schema:"storeKey" binding:"required"`
}

type ObjectPropsResponse struct {
	Props []to.SerializedProperty `json:"props"`
}

type ExtractTypesRequest struct {
	FilePath string `json:"filePath" schema:"filePath" binding:"required"`
}

type SerializedDeclaration struct {
	DeclareName string      `json:"declareName"`
	Type        to.Envelope `json:"type"`
}

type ExtractTypesResponse struct {
	Declarations []SerializedDeclaration `json:"declarations"`
}
