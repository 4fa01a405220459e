package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Flex decodes a JSON number, string or null into a string. The backend
// serializes telegram ids and decimals either way.
type Flex string

func (f *Flex) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Flex(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = Flex(n.String())
	return nil
}

func (f Flex) String() string { return string(f) }

// Int64 parses the value as an integer id; ok is false for empty or non-numeric values.
func (f Flex) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(f), 10, 64)
	return n, err == nil
}

// FlexID formats an integer id as a Flex.
func FlexID(id int64) Flex { return Flex(strconv.FormatInt(id, 10)) }

// User types.
const (
	UserTypeUser    = "user"
	UserTypeAgent   = "agent"
	UserTypeOwner   = "owner"
	UserTypeCompany = "company"
)

// Property statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
)

type Customer struct {
	TelegramID   Flex   `json:"telegram_id"`
	FullName     string `json:"full_name"`
	Username     string `json:"username,omitempty"`
	UserType     string `json:"user_type,omitempty"`
	IsVerified   bool   `json:"is_verified"`
	ProfileToken string `json:"profile_token,omitempty"`
}

// Upgraded reports whether the customer may list properties.
func (c Customer) Upgraded() bool {
	switch c.UserType {
	case UserTypeAgent, UserTypeOwner, UserTypeCompany:
		return true
	}
	return false
}

type Property struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Status             string `json:"status"`
	Owner              Flex   `json:"owner,omitempty"`
	City               string `json:"city,omitempty"`
	Region             string `json:"region,omitempty"`
	SubcityZone        string `json:"subcity_zone,omitempty"`
	Woreda             Flex   `json:"woreda,omitempty"`
	GoogleMapLink      string `json:"google_map_link,omitempty"`
	TotalArea          Flex   `json:"total_area,omitempty"`
	SellingPrice       Flex   `json:"selling_price,omitempty"`
	AveragePricePerSqm Flex   `json:"average_price_per_square_meter,omitempty"`
	TypeProperty       string `json:"type_property,omitempty"`
	Usage              string `json:"usage,omitempty"`
	Bedrooms           Flex   `json:"bedrooms,omitempty"`
	Bathrooms          Flex   `json:"bathrooms,omitempty"`
	Kitchens           Flex   `json:"kitchens,omitempty"`
	HeatingType        string `json:"heating_type,omitempty"`
	Cooling            string `json:"cooling,omitempty"`
	BuiltDate          string `json:"built_date,omitempty"`
	NumberOfBalconies  Flex   `json:"number_of_balconies,omitempty"`
	OwnDescription     string `json:"own_description,omitempty"`
	LinkToVideoOrImage string `json:"link_to_video_or_image,omitempty"`
}

type Tour struct {
	ID           int64  `json:"id,omitempty"`
	Property     int64  `json:"property"`
	FullName     string `json:"full_name"`
	PhoneNumber  string `json:"phone_number"`
	TourDate     string `json:"tour_date"`
	TourTimeSlot string `json:"tour_time_slot"`
	TelegramID   Flex   `json:"telegram_id"`
	Username     string `json:"username"`
	Status       string `json:"status,omitempty"`
}

type Favorite struct {
	ID                 int64 `json:"id,omitempty"`
	Property           int64 `json:"property"`
	CustomerTelegramID Flex  `json:"customer_telegram_id"`
}

// LiveRequest is a live-agent support ticket.
type LiveRequest struct {
	ID             int64  `json:"id,omitempty"`
	UserID         Flex   `json:"user_id"`
	Username       string `json:"username"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	AdditionalText string `json:"additional_text"`
	IsResponded    bool   `json:"is_responded"`
}

// Message is one entry of a ticket thread. UserID is the thread owner.
type Message struct {
	ID        int64     `json:"id,omitempty"`
	Request   int64     `json:"request"`
	SenderID  Flex      `json:"sender_id"`
	UserID    Flex      `json:"user_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
