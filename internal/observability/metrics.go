package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Submission outcomes used as the "result" label of contact_submissions_total.
const (
	ResultCreated   = "created"
	ResultDuplicate = "duplicate"
	ResultInvalid   = "invalid"
	ResultError     = "error"
)

var (
	// contactsStored gauges the number of contacts currently held by the book.
	contactsStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "contacts_stored",
			Help: "Current number of contacts in the contact book.",
		},
	)

	// contactSubmissions counts SubmitContact calls by outcome.
	contactSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Total number of contact submissions by result.",
		},
		[]string{"result"},
	)

	// contactDeletions counts deletions that actually removed a contact.
	contactDeletions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contact_deletions_total",
			Help: "Total number of contacts removed.",
		},
	)

	// invalidFields counts validation failures per form field.
	invalidFields = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_invalid_fields_total",
			Help: "Total number of failed field validations by field.",
		},
		[]string{"field"},
	)
)

func init() {
	prometheus.MustRegister(contactsStored, contactSubmissions, contactDeletions, invalidFields)
}

// SetContactsStored records the current size of the contact book.
func SetContactsStored(n int) { contactsStored.Set(float64(n)) }

// ObserveSubmission increments the submission counter for result.
func ObserveSubmission(result string) { contactSubmissions.WithLabelValues(result).Inc() }

// ObserveDeletion increments the deletion counter.
func ObserveDeletion() { contactDeletions.Inc() }

// ObserveInvalidField increments the failed-validation counter for field.
func ObserveInvalidField(field string) { invalidFields.WithLabelValues(field).Inc() }
