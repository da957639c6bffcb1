package analytics

import (
	"errors"
	"time"
)

var ErrInvalidRange = errors.New("start date cannot be after end date")

// earliestDate stands in for "all history" when only an end date is given.
var earliestDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

type Overview struct {
	NewPatients        int     `json:"new_patients"`
	SurgeriesTotal     int     `json:"surgeries_total"`
	SurgeriesCompleted int     `json:"surgeries_completed"`
	SurgeriesRemaining int     `json:"surgeries_remaining"`
	AvgWaitTimeMinutes float64 `json:"avg_wait_time_minutes"`
	ActiveCases        int     `json:"active_cases"`
}

// Window is the resolved, inclusive datetime range an overview covers.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type ActivityItem struct {
	PatientNumber  string    `json:"patient_number"`
	Name           string    `json:"name"`
	PreviousStatus *string   `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	ChangedBy      string    `json:"changed_by"`
	ChangedAt      time.Time `json:"changed_at"`
}

type RecentActivity struct {
	StatusChanges  []ActivityItem `json:"status_changes"`
	CompletedToday []string       `json:"completed_today"`
	ActiveCases    []string       `json:"active_cases"`
}

type StatusCount struct {
	Status     string `json:"status"`
	Count      int    `json:"count"`
	Message    string `json:"message"`
	Color      string `json:"color"`
	OrderIndex int    `json:"order_index"`
}
