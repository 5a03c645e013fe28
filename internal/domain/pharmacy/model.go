package pharmacy

import "time"

type Patient struct {
	Name   string `json:"name"`
	Age    string `json:"age"`
	Gender string `json:"gender"`
}

type Doctor struct {
	Name               string `json:"name"`
	Specialization     string `json:"specialization"`
	RegistrationNumber string `json:"registration_number"`
}

// Medicine is one prescribed line. Available is looked up in the catalog;
// names the catalog does not know count as available.
type Medicine struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Quantity     string `json:"quantity"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions"`
	Available    bool   `json:"available"`
}

// Prescription is an analyzed prescription text.
type Prescription struct {
	ID              string     `json:"prescription_id"`
	Patient         Patient    `json:"patient"`
	Doctor          Doctor     `json:"doctor"`
	Medicines       []Medicine `json:"medicines"`
	Diagnosis       []string   `json:"diagnosis"`
	ConfidenceScore float64    `json:"confidence_score"`
	Extractor       string     `json:"extractor"`
	RawText         string     `json:"raw_text,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type OrderItem struct {
	Name     string  `json:"name"`
	Dosage   string  `json:"dosage,omitempty"`
	Quantity float64 `json:"quantity"`
}

type Order struct {
	ID                string      `json:"order_id"`
	PrescriptionID    string      `json:"prescription_id"`
	PatientInfo       Patient     `json:"patient_info"`
	Medicines         []OrderItem `json:"medicines"`
	DeliveryAddress   string      `json:"delivery_address"`
	ContactNumber     string      `json:"contact_number"`
	Status            string      `json:"status"`
	Subtotal          float64     `json:"subtotal"`
	DeliveryCharge    float64     `json:"delivery_charge"`
	TotalAmount       float64     `json:"total_amount"`
	EstimatedDelivery string      `json:"estimated_delivery"`
	CreatedAt         time.Time   `json:"created_at"`
}

// OrderRequest is the body of an order placement. A missing quantity
// defaults to 1.
type OrderRequest struct {
	PrescriptionID  string             `json:"prescription_id"`
	PatientInfo     Patient            `json:"patient_info"`
	Medicines       []OrderRequestItem `json:"medicines"`
	DeliveryAddress string             `json:"delivery_address"`
	ContactNumber   string             `json:"contact_number"`
}

type OrderRequestItem struct {
	Name     string   `json:"name"`
	Dosage   string   `json:"dosage,omitempty"`
	Quantity *float64 `json:"quantity,omitempty"`
}

// CatalogEntry is one medicine the pharmacy stocks.
type CatalogEntry struct {
	Name      string `json:"name"`
	Generic   string `json:"generic"`
	Category  string `json:"category"`
	Available bool   `json:"available"`
}

type Stats struct {
	TotalPrescriptionsAnalyzed int       `json:"total_prescriptions_analyzed"`
	TotalOrdersCreated         int       `json:"total_orders_created"`
	MedicinesInDatabase        int       `json:"medicines_in_database"`
	AnalyzerStatus             string    `json:"analyzer_status"`
	LLMAvailable               bool      `json:"llm_available"`
	Timestamp                  time.Time `json:"timestamp"`
}
