// Package vocab holds the IRIs of the mandate, decision, queue and
// notification vocabularies.
package vocab

import "strings"

// Namespaces.
const (
	RDF     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	Mandaat = "http://data.vlaanderen.be/ns/mandaat#"
	Besluit = "http://data.vlaanderen.be/ns/besluit#"
	Org     = "http://www.w3.org/ns/org#"
	Mu      = "http://mu.semte.ch/vocabularies/core/"
	Ext     = "http://mu.semte.ch/vocabularies/ext/"
	DCT     = "http://purl.org/dc/terms/"
	LMB     = "http://lblod.data.gift/vocabularies/lmb/"
	XSD     = "http://www.w3.org/2001/XMLSchema#"
)

// Generic predicates.
const (
	Type = RDF + "type"
	UUID = Mu + "uuid"
)

// Mandate holder record.
const (
	Mandataris        = Mandaat + "Mandataris"
	Holds             = Org + "holds"
	AliasOf           = Mandaat + "isBestuurlijkeAliasVan" // person
	Start             = Mandaat + "start"
	End               = Mandaat + "einde"
	Status            = Mandaat + "status"
	PublicationStatus = LMB + "hasPublicationStatus"
	Rank              = Mandaat + "rangorde"
	PolicyDomain      = Mandaat + "beleidsdomein"
	HasMembership     = Org + "hasMembership"
)

// Ownership chain from post to organization.
const (
	HasPost              = Org + "hasPost"
	TimeSpecialisationOf = Mandaat + "isTijdspecialisatieVan"
	Governs              = Besluit + "bestuurt"
)

// Decision ratification relations.
const (
	RatifiesAppointment = Ext + "bekrachtigtAanstellingVan"
	RatifiesTermination = Ext + "bekrachtigtOntslagVan"
)

// RatificationPredicates lists the relations the intake filter keeps.
var RatificationPredicates = []string{RatifiesAppointment, RatifiesTermination}

// IsRatification reports whether p is one of the ratification relations.
func IsRatification(p string) bool {
	return p == RatifiesAppointment || p == RatifiesTermination
}

// Durable work queue.
const (
	QueuedMandataris  = Ext + "queuedMandataris"
	QueueTime         = Ext + "queueTime"
	QueueInstanceBase = "http://data.lblod.info/id/mandataris-queue/"
)

// Notifications.
const (
	SystemNotification     = Ext + "SystemNotification"
	SystemNotificationLink = Ext + "SystemNotificationLink"
	Subject                = DCT + "subject"
	Description            = DCT + "description"
	Created                = DCT + "created"
	NotificationType       = Ext + "notificationType"
	NotificationLink       = Ext + "notificationLink"
	LinkedType             = Ext + "linkedType"
	LinkedTo               = Ext + "linkedTo"

	NotificationBase     = "http://data.lblod.info/id/system-notifications/"
	NotificationLinkBase = "http://data.lblod.info/id/system-notification-links/"
)

// Link types attached to notifications.
const (
	LinkMandataris = "mandataris"
	LinkDecision   = "besluit"
)

// DefaultAreaTemplate is the organization area template; {uuid} is replaced
// by the governed organization's mu:uuid.
const DefaultAreaTemplate = "http://mu.semte.ch/graphs/organizations/{uuid}/LoketLB-mandaatGebruiker"

// DefaultStagingGraph and DefaultQueueGraph are the defaults of the
// corresponding configuration variables.
const (
	DefaultStagingGraph = "http://mu.semte.ch/graphs/besluiten-consumed"
	DefaultQueueGraph   = "http://mu.semte.ch/graphs/mandataris-queue"
)

// AreaFor expands template with the organization uuid.
func AreaFor(template, uuid string) string {
	return strings.ReplaceAll(template, "{uuid}", uuid)
}

// Local returns the part of iri after the last '#' or '/'.
func Local(iri string) string {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 && i < len(iri)-1 {
		return iri[i+1:]
	}
	return iri
}
