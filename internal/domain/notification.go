package domain

import "time"

type NotificationStatus string

const (
	NotificationPending      NotificationStatus = "pending"
	NotificationAcknowledged NotificationStatus = "acknowledged"
	NotificationCompleted    NotificationStatus = "completed"
)

type Notification struct {
	NotificationID   string                 `json:"id" dynamodbav:"notification_id"`
	Type             string                 `json:"type" dynamodbav:"type"`
	RecipientAddress string                 `json:"recipientAddress" dynamodbav:"recipient_address"`
	RecipientType    string                 `json:"recipientType" dynamodbav:"recipient_type"`
	Data             map[string]interface{} `json:"data,omitempty" dynamodbav:"data"`
	Message          string                 `json:"message" dynamodbav:"message"`
	Read             bool                   `json:"read" dynamodbav:"read"`
	Status           NotificationStatus     `json:"status" dynamodbav:"status"`
	CreatedAt        time.Time              `json:"timestamp" dynamodbav:"created_at"`
	UpdatedAt        time.Time              `json:"updatedAt" dynamodbav:"updated_at"`
}

type CreateNotificationRequest struct {
	Type             string                 `json:"type" validate:"required"`
	RecipientAddress string                 `json:"recipientAddress" validate:"required,eth_addr"`
	RecipientType    string                 `json:"recipientType" validate:"required"`
	Data             map[string]interface{} `json:"data"`
	Message          string                 `json:"message" validate:"required"`
}

type UpdateNotificationRequest struct {
	Read   *bool               `json:"read"`
	Status *NotificationStatus `json:"status" validate:"omitempty,oneof=pending acknowledged completed"`
}

type NotificationFilter struct {
	RecipientAddress string
	RecipientType    string
	UnreadOnly       bool
}
