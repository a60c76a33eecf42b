// Package model defines the normalized record types shared by the
// extraction, storage, and search layers. The ingestion boundary accepts
// only RawMessageEvent; transport SDK objects never cross into the core.
package model

// MessageType classifies a message. Derived during extraction, not
// authoritative; classification order matters (scheduling beats link).
type MessageType string

const (
	TypeText         MessageType = "text"
	TypeLink         MessageType = "link"
	TypeScheduling   MessageType = "scheduling"
	TypeQuestion     MessageType = "question"
	TypeConfirmation MessageType = "confirmation"
	TypeImage        MessageType = "image"
	TypeVideo        MessageType = "video"
	TypeAudio        MessageType = "audio"
	TypeDocument     MessageType = "document"
	TypeLocation     MessageType = "location"
	TypeContact      MessageType = "contact"
	TypeMedia        MessageType = "media"
)

// Language codes detected per message.
const (
	LangHebrew  = "hebrew"
	LangEnglish = "english"
	LangMixed   = "mixed"
	LangUnknown = "unknown"
)

// SelfSender is the sentinel sender name for self-sent messages.
const SelfSender = "Me"

// RawMessageEvent is the normalized inbound shape handed to the core by a
// messaging connector. Media/location/contact classification comes from
// transport metadata and is carried here as MediaType.
type RawMessageEvent struct {
	ID             string `json:"id"`
	ChatID         string `json:"chatId"`
	ChatName       string `json:"chatName"`
	IsGroupMessage bool   `json:"isGroupMessage"`
	SenderName     string `json:"senderName"`
	SenderNumber   string `json:"senderNumber"`
	Content        string `json:"content"`
	Timestamp      int64  `json:"timestamp"` // epoch milliseconds
	IsFromMe       bool   `json:"isFromMe"`
	MediaType      string `json:"mediaType,omitempty"` // "", image, video, audio, document, location, contact, media
}

// Message is the enriched, persisted record. Immutable once created;
// re-ingesting the same ID overwrites (edit semantics).
type Message struct {
	ID             string          `json:"id" db:"id"`
	ChatID         string          `json:"chatId" db:"chat_id"`
	ChatName       string          `json:"chatName" db:"chat_name"`
	IsGroupMessage bool            `json:"isGroupMessage" db:"is_group"`
	SenderName     string          `json:"senderName" db:"sender_name"`
	SenderNumber   string          `json:"senderNumber" db:"sender_number"`
	Content        string          `json:"content" db:"content"`
	Timestamp      int64           `json:"timestamp" db:"timestamp"`
	MessageType    MessageType     `json:"messageType" db:"message_type"`
	Languages      []string        `json:"languages" db:"-"`
	IsFromMe       bool            `json:"isFromMe" db:"is_from_me"`
	Deleted        bool            `json:"deleted" db:"deleted"`
	URLs           []ExtractedURL  `json:"urls,omitempty" db:"-"`
	Entities       []Entity        `json:"entities,omitempty" db:"-"`
	Scheduling     *SchedulingInfo `json:"scheduling,omitempty" db:"-"`
}

// URLPurpose classifies what an extracted URL points at.
type URLPurpose string

const (
	PurposeRestaurant URLPurpose = "restaurant"
	PurposeMovie      URLPurpose = "movie"
	PurposeMedia      URLPurpose = "media"
	PurposeLocation   URLPurpose = "location"
	PurposeSocial     URLPurpose = "social"
	PurposeGeneral    URLPurpose = "general"
	PurposeUnknown    URLPurpose = "unknown"
)

// ExtractedURL is a URL found in message content, with bounded context
// windows captured around it.
type ExtractedURL struct {
	URL           string     `json:"url" db:"url"`
	Domain        string     `json:"domain" db:"domain"`
	Purpose       URLPurpose `json:"purpose" db:"purpose"`
	ContextBefore string     `json:"contextBefore" db:"context_before"`
	ContextAfter  string     `json:"contextAfter" db:"context_after"`
	Position      int        `json:"position" db:"position"` // character offset
}

// EntityType tags a structured mention extracted from free text.
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityPlace        EntityType = "place"
	EntityActivity     EntityType = "activity"
	EntityTime         EntityType = "time"
	EntityConfirmation EntityType = "confirmation"
)

// Entity is a structured mention. ParsedTime is set only for time entities
// the parser could resolve, as epoch milliseconds.
type Entity struct {
	Type       EntityType `json:"type" db:"type"`
	Value      string     `json:"value" db:"value"`
	ParsedTime int64      `json:"parsedTime,omitempty" db:"parsed_time"`
}

// SchedulingInfo is the scheduling-intent bundle populated when a message
// proposes, confirms, or discusses a plan.
type SchedulingInfo struct {
	IsScheduling   bool     `json:"isScheduling" db:"is_scheduling"`
	Participants   []string `json:"participants,omitempty"`
	Locations      []string `json:"locations,omitempty"`
	Activities     []string `json:"activities,omitempty"`
	TimeReferences []string `json:"timeReferences,omitempty"`
	Confirmations  []string `json:"confirmations,omitempty"`
	Urgent         bool     `json:"urgent"`
}
