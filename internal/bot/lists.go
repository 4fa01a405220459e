package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/estatebot/core/telegram/format"
	tghelpers "github.com/m3rciful/estatebot/core/telegram/helpers"
	"github.com/m3rciful/estatebot/core/telegram/keyboard"
	"github.com/m3rciful/estatebot/internal/api"
	"github.com/m3rciful/estatebot/internal/bot/action"
	"github.com/m3rciful/estatebot/internal/bot/pagination"

	tele "gopkg.in/telebot.v4"
)

// maxMessageLen is Telegram's limit for one text message.
const maxMessageLen = 4096

func esc(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		s = fallback
	}
	return format.EscapeMarkdownV2(s)
}

// pageMarkup lays out navigation, optional per-item rows and, when back is
// set, the return-to-menu button.
func pageMarkup[T any](p pagination.Page[T], kind action.Kind, back bool, rows ...[]keyboard.InlineBtn) *tele.ReplyMarkup {
	all := [][]keyboard.InlineBtn{p.Nav(func(label string, page int) keyboard.InlineBtn {
		return action.Paged(kind, page).Button(label)
	})}
	all = append(all, rows...)
	if back {
		all = append(all, []keyboard.InlineBtn{backToMenu()})
	}
	return keyboard.InlineButtonsRows(all...)
}

func (b *Bot) listProperties(c tele.Context) error {
	uid, _ := senderOf(c)
	props, err := b.api.ListCustomerProperties(b.ctx(c), uid)
	if err != nil {
		return b.fail(c, err)
	}
	if len(props) == 0 {
		return tghelpers.EditOrSendText(c, "🏡 You don't have any properties listed yet! Use the 'Add Property' button or /addproperty.")
	}

	p := pagination.Paginate(props, pageOf(c), b.pageSize)
	var sb strings.Builder
	fmt.Fprintf(&sb, "📝 *Your Properties \\(Page %d\\)*:\n\n", p.Number)
	for i, prop := range p.Items {
		fmt.Fprintf(&sb, "%d\\. 📍 *%s* \\- Status: `%s`\n", p.Index(i), esc(prop.Name, "N/A"), esc(prop.Status, "N/A"))
	}
	return tghelpers.EditOrSendMDV2(c, sb.String(), pageMarkup(p, action.ListProperties, true))
}

// propertyNames resolves property names one call per distinct id. Lookups
// that fail fall back to a placeholder.
func (b *Bot) propertyNames(ctx context.Context, ids []int64) map[int64]string {
	names := make(map[int64]string, len(ids))
	for _, id := range ids {
		if _, seen := names[id]; seen {
			continue
		}
		names[id] = "Unknown Property"
		if prop, err := b.api.GetProperty(ctx, id); err == nil && prop.Name != "" {
			names[id] = prop.Name
		}
	}
	return names
}

func (b *Bot) listTours(c tele.Context) error {
	uid, _ := senderOf(c)
	ctx := b.ctx(c)
	tours, err := b.api.ListCustomerTours(ctx, uid)
	if err != nil {
		return b.fail(c, err)
	}
	if len(tours) == 0 {
		return tghelpers.EditOrSendText(c, "🚶 You have no scheduled tours yet! Find a property and request a tour.")
	}

	p := pagination.Paginate(tours, pageOf(c), b.pageSize)
	ids := make([]int64, 0, len(p.Items))
	for _, t := range p.Items {
		ids = append(ids, t.Property)
	}
	names := b.propertyNames(ctx, ids)

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 *Your Scheduled Tours \\(Page %d\\)*:\n\n", p.Number)
	for i, t := range p.Items {
		status := t.Status
		if status == "" {
			status = "pending"
		}
		fmt.Fprintf(&sb, "%d\\. 🏡 Property: *%s*\n   🗓️ Date: `%s`\n   ⏰ Time Slot: `%s`\n   Status: `%s`\n\n",
			p.Index(i), esc(names[t.Property], "Unknown Property"), esc(t.TourDate, "N/A"), esc(t.TourTimeSlot, "N/A"), esc(capitalize(status), "N/A"))
	}
	return tghelpers.EditOrSendMDV2(c, sb.String(), pageMarkup(p, action.ListTours, true))
}

func (b *Bot) listFavorites(c tele.Context) error {
	uid, _ := senderOf(c)
	ctx := b.ctx(c)
	favs, err := b.api.ListCustomerFavorites(ctx, uid)
	if err != nil {
		return b.fail(c, err)
	}
	if len(favs) == 0 {
		return tghelpers.EditOrSendText(c, "❤️ You have no favorite properties yet! Use the ❤️ button on property listings to add some.")
	}

	p := pagination.Paginate(favs, pageOf(c), b.pageSize)
	ids := make([]int64, 0, len(p.Items))
	for _, f := range p.Items {
		ids = append(ids, f.Property)
	}
	names := b.propertyNames(ctx, ids)

	var sb strings.Builder
	fmt.Fprintf(&sb, "🌟 *Your Favorite Properties \\(Page %d\\)*:\n\n", p.Number)
	rows := make([][]keyboard.InlineBtn, 0, len(p.Items))
	for i, f := range p.Items {
		fmt.Fprintf(&sb, "%d\\. 🏡 *%s* \\(ID: `%d`\\)\n", p.Index(i), esc(names[f.Property], "Unknown Property"), f.Property)
		rows = append(rows, []keyboard.InlineBtn{
			action.Favorite(f.Property).Button(fmt.Sprintf("💔 Remove #%d", p.Index(i))),
		})
	}
	return tghelpers.EditOrSendMDV2(c, sb.String(), pageMarkup(p, action.ListFavorites, true, rows...))
}

func userTypeIcon(t string) string {
	switch t {
	case api.UserTypeAgent:
		return "👤"
	case api.UserTypeOwner, api.UserTypeCompany:
		return "🏢"
	}
	return "❓"
}

// listUsers pages through agents, owners and companies sorted by name,
// each with the number of confirmed listings.
func (b *Bot) listUsers(c tele.Context) error {
	ctx := b.ctx(c)
	all, err := b.api.ListCustomers(ctx)
	if err != nil {
		return b.fail(c, err)
	}
	users := make([]api.Customer, 0, len(all))
	for _, u := range all {
		if u.Upgraded() {
			users = append(users, u)
		}
	}
	if len(users) == 0 {
		return tghelpers.EditOrSendText(c, "👥 No registered agents, owners, or companies found.")
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].FullName < users[j].FullName })

	p := pagination.Paginate(users, pageOf(c), b.pageSize)
	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 *Registered Agents/Owners/Companies \\(Page %d\\)*:\n\n", p.Number)
	for i, u := range p.Items {
		count := "Error"
		if id, ok := u.TelegramID.Int64(); ok {
			if props, err := b.api.ListCustomerProperties(ctx, id); err == nil {
				count = fmt.Sprint(confirmedCount(props))
			}
		}
		fmt.Fprintf(&sb, "%d\\. %s *%s*\n   Type: `%s`\n   Telegram ID: `%s`\n   🔑 Confirmed Properties: `%s`\n\n",
			p.Index(i), userTypeIcon(u.UserType), esc(u.FullName, "N/A"), esc(capitalize(u.UserType), "N/A"),
			esc(u.TelegramID.String(), "N/A"), count)
	}
	return tghelpers.EditOrSendMDV2(c, sb.String(), pageMarkup(p, action.ListUsers, false))
}

func confirmedCount(props []api.Property) int {
	n := 0
	for _, p := range props {
		if p.Status == api.StatusConfirmed {
			n++
		}
	}
	return n
}

// listRequests shows every unanswered live-agent ticket, split across as
// many messages as the length limit requires.
func (b *Bot) listRequests(c tele.Context) error {
	reqs, err := b.api.ListRequests(b.ctx(c))
	if err != nil {
		return b.fail(c, err)
	}
	if len(reqs) == 0 {
		return tghelpers.SendText(c, "No live agent requests found at all.")
	}
	var blocks []string
	for _, r := range reqs {
		if r.IsResponded {
			continue
		}
		blocks = append(blocks, fmt.Sprintf(
			"🆔 *Request ID:* `%d`\n👤 *User TG ID:* `%s`\n   *Name:* %s\n   *Phone:* %s\n   *Address:* %s\n💬 *Details:* %s\n👉 Use `/respond %d` to reply\n%s\n\n",
			r.ID, esc(r.UserID.String(), "N/A"), esc(r.Name, "N/A"), esc(r.Phone, "N/A"), esc(r.Address, "N/A"),
			esc(r.AdditionalText, "None"), r.ID, strings.Repeat("\\-", 11)))
	}
	if len(blocks) == 0 {
		return tghelpers.SendText(c, "✅ No pending live agent requests found.")
	}
	for _, chunk := range splitChunks("📨 *Pending Live Agent Requests*\n\n", blocks, maxMessageLen) {
		if err := tghelpers.SendMDV2(c, chunk); err != nil {
			return err
		}
	}
	return nil
}

// splitChunks packs header and blocks into messages of at most limit
// characters, keeping blocks whole when they fit.
func splitChunks(header string, blocks []string, limit int) []string {
	var out []string
	cur := header
	flush := func() {
		if cur != "" {
			out = append(out, cur)
		}
		cur = ""
	}
	for _, blk := range blocks {
		if utf8.RuneCountInString(cur)+utf8.RuneCountInString(blk) <= limit {
			cur += blk
			continue
		}
		flush()
		for utf8.RuneCountInString(blk) > limit {
			r := []rune(blk)
			out = append(out, string(r[:limit]))
			blk = string(r[limit:])
		}
		cur = blk
	}
	flush()
	return out
}
