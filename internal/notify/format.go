package notify

import (
	"fmt"
	"strings"

	"github.com/m3rciful/estatebot/core/telegram/format"
	"github.com/m3rciful/estatebot/internal/api"
)

func esc(s string) string {
	if strings.TrimSpace(s) == "" {
		s = "N/A"
	}
	return format.EscapeMarkdownV2(s)
}

func upgradeText(c *api.Customer) string {
	return fmt.Sprintf("✨ Your account has been upgraded to the new user type: *%s*\\.\n\n"+
		"You can now use the /addproperty command to list properties\\.\n"+
		"This action is *irreversible*\\.", esc(c.UserType))
}

const verifiedText = "🎉 Congratulations\\! 🎉\n" +
	"Your account has been verified\\! 🎖️\n" +
	"As a verified client, you are more trusted than regular users\\. " +
	"This means you can enjoy enhanced services and opportunities\\!\n" +
	"Thank you for being a valued part of our community\\! 🌟"

// listingText renders the channel post for a confirmed property.
func listingText(p *api.Property, owner *api.Customer, confirmed int) string {
	verified := "Unverified Client ❌"
	if owner != nil && owner.IsVerified {
		verified = "Verified Client ✅"
	}
	var sb strings.Builder
	line := func(label, value string) {
		fmt.Fprintf(&sb, "%s:* %s\n\n", label, value)
	}
	line("🏠 *Property Name", esc(p.Name))
	line("📍 *Location", esc(p.City)+", "+esc(p.Region))
	line("🗺️ *Google Map Link", esc(p.GoogleMapLink))
	line("📏 *Total Area", esc(p.TotalArea.String())+" sqm")
	line("💵 *Selling Price", "\\$"+esc(p.SellingPrice.String()))
	line("💲 *Average Price per sqm", "\\$"+esc(p.AveragePricePerSqm.String()))
	line("🏢 *Type", esc(p.TypeProperty))
	line("🏘️ *Usage", esc(p.Usage))
	line("🛌 *Bedrooms", esc(p.Bedrooms.String()))
	line("🛁 *Bathrooms", esc(p.Bathrooms.String()))
	line("🍳 *Kitchens", esc(p.Kitchens.String()))
	line("🌡️ *Heating Type", esc(p.HeatingType))
	line("❄️ *Cooling", esc(p.Cooling))
	line("🏙️ *Subcity/Zone", esc(p.SubcityZone)+", Woreda "+esc(p.Woreda.String()))
	line("🏗️ *Built Date", esc(p.BuiltDate))
	line("🌄 *Balconies", esc(p.NumberOfBalconies.String()))
	line("📜 *Description", esc(p.OwnDescription))
	line("🔗 *Additional Media", esc(p.LinkToVideoOrImage))
	fmt.Fprintf(&sb, "*Owner Details:*\n%s\n\n", verified)
	line("🔢 *Properties Listed", fmt.Sprint(confirmed))
	sb.WriteString("\\-\\-\\-\n\nContact us for more details or view on the map\\!\n")
	return sb.String()
}

func congratsText(owner *api.Customer, p *api.Property, channelURL string) string {
	name := "there"
	if owner != nil && owner.FullName != "" {
		name = owner.FullName
	}
	text := fmt.Sprintf("🎉 Congratulations, %s\\! 🎉\nYour property *%s* has been approved and is now live on the channel\\! 🌟\n",
		format.EscapeMarkdownV2(name), esc(p.Name))
	if channelURL != "" {
		text += fmt.Sprintf("View it here: [View on Channel](%s)\n", linkEscaper.Replace(channelURL))
	}
	return text
}

// linkEscaper escapes the characters MarkdownV2 reserves inside (...) of a link.
var linkEscaper = strings.NewReplacer(`\`, `\\`, `)`, `\)`)

func tourText(t *api.Tour, p *api.Property) string {
	propertyID := t.Property
	name, city, region, mapLink := "N/A", "N/A", "N/A", "N/A"
	if p != nil {
		propertyID = p.ID
		name, city, region, mapLink = esc(p.Name), esc(p.City), esc(p.Region), esc(p.GoogleMapLink)
	}
	return fmt.Sprintf("🚨 *New Tour Request Notification*\n\n"+
		"🏠 *Property Name:* %s\n📍 *Location:* %s, %s\n🔢 *Property ID:* %d\n🗺️ *Google Map Link:* %s\n\n"+
		"👤 *Requested By:* %s\n📞 *Contact Number:* %s\n📅 *Requested Date:* %s\n⏰ *Requested Time:* %s\n\n"+
		"Please review and manage this request accordingly\\.",
		name, city, region, propertyID, mapLink,
		esc(t.FullName), esc(t.PhoneNumber), esc(t.TourDate), esc(t.TourTimeSlot))
}
