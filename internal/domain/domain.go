// Package domain re-exports the model types so callers can import one
// package instead of each area subpackage.
package domain

import (
	"github.com/verdelo/carbonledger-backend/internal/domain/carbon"
	"github.com/verdelo/carbonledger-backend/internal/domain/ops"
	"github.com/verdelo/carbonledger-backend/internal/domain/reporting"
	"github.com/verdelo/carbonledger-backend/internal/domain/tenant"
)

type Company = tenant.Company
type User = tenant.User
type DataSourceConnection = tenant.DataSourceConnection

type ActivityRecord = carbon.ActivityRecord
type EmissionFactor = carbon.EmissionFactor
type EmissionEstimate = carbon.EmissionEstimate
type EmissionsSummary = carbon.EmissionsSummary

type Report = reporting.Report

type AuditLog = ops.AuditLog
type IdempotencyKey = ops.IdempotencyKey

const (
	PlanDemo = tenant.PlanDemo
	PlanPaid = tenant.PlanPaid

	ConnectionConnected    = tenant.ConnectionConnected
	ConnectionAIEstimated  = tenant.ConnectionAIEstimated
	ConnectionNotConnected = tenant.ConnectionNotConnected
	ConnectionManual       = tenant.ConnectionManual

	QualityMeasured  = carbon.QualityMeasured
	QualityEstimated = carbon.QualityEstimated
	QualityManual    = carbon.QualityManual

	Scope1 = carbon.Scope1
	Scope2 = carbon.Scope2
	Scope3 = carbon.Scope3

	PeriodAnnual  = carbon.PeriodAnnual
	PeriodMonthly = carbon.PeriodMonthly

	ReportDraft     = reporting.StatusDraft
	ReportPublished = reporting.StatusPublished
)

// Scope3Categories are the scope-3 sub-categories the engine supports.
var Scope3Categories = carbon.Scope3Categories
