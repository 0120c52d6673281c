package main

import (
	"github.com/labadmin/pulldown/derive"
	"github.com/labadmin/pulldown/export"
	"github.com/labadmin/pulldown/internal/logger"
	"github.com/labadmin/pulldown/survey"
)

// API request and response models

// QuestionResponse describes one question of the catalog
type QuestionResponse struct {
	QuestionID  string   `json:"questionId" example:"107"`
	ShortName   string   `json:"shortName" example:"DIET_TYPE"`
	Cardinality string   `json:"cardinality" example:"SINGLE"`
	Responses   []string `json:"responses,omitempty"`
}

// QuestionsListResponse is the response for listing the catalog
type QuestionsListResponse struct {
	Questions []QuestionResponse `json:"questions"`
}

// PulldownResponse is the JSON form of a tabulation run
type PulldownResponse struct {
	RunID    string           `json:"runId"`
	Schema   string           `json:"schema"`
	Profile  string           `json:"profile,omitempty"`
	Duration string           `json:"duration" example:"12.4ms"`
	Warnings []survey.Warning `json:"warnings"`
	*export.Document
}

// ProfileRequest is the body for replacing a profile
type ProfileRequest struct {
	Fields []derive.Field `json:"fields"`
}

// ProfileResponse describes one export profile
type ProfileResponse struct {
	Name   string         `json:"name" example:"qiita"`
	Fields []derive.Field `json:"fields"`
}

// ProfilesListResponse is the response for listing profiles
type ProfilesListResponse struct {
	Profiles []ProfileResponse `json:"profiles"`
}

// HealthResponse is the health check response
type HealthResponse struct {
	Status   string          `json:"status" example:"healthy"`
	Error    string          `json:"error,omitempty"`
	Profiles int             `json:"profiles"`
	Counters logger.Snapshot `json:"counters"`
}

// ErrorResponse is an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"tabulation failed"`
	Details string `json:"details,omitempty"`
}
