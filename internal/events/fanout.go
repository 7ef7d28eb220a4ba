package events

import (
	"fmt"
	"time"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/model"
)

const (
	ChannelAdmin      = "admin-channel"
	ChannelAgency     = "agency-channel"
	ChannelContractor = "contractor-channel"
)

// Notification is one (channel, topic, payload) triple handed to a Transport.
type Notification struct {
	Channel string         `json:"channel"`
	Topic   string         `json:"topic"`
	Payload map[string]any `json:"payload"`
}

// Fanout maps a committed event to the notifications subscribers expect.
// It is pure: the same event always yields the same triples in the same order.
func Fanout(ev Event) []Notification {
	switch ev.Kind {
	case KindBatchCreated:
		out := []Notification{{
			Channel: ChannelAgency,
			Topic:   "batch-created-" + ev.AgencyID,
			Payload: basePayload(ev, "batch-creation",
				fmt.Sprintf("Contract of %s has been created!", ev.ContractTitle)),
		}}
		for _, cid := range ev.ContractorIDs {
			out = append(out, Notification{
				Channel: ChannelContractor,
				Topic:   "batch-created-" + cid,
				Payload: basePayload(ev, "batch-creation",
					fmt.Sprintf("Contract of %s has been created for you!", ev.ContractTitle)),
			})
		}
		return out

	case KindBatchApproved:
		var out []Notification
		for _, cid := range ev.ContractorIDs {
			out = append(out, Notification{
				Channel: ChannelContractor,
				Topic:   "batch-approved-" + cid,
				Payload: basePayload(ev, "batch-approval",
					fmt.Sprintf("Contract of %s has been given to you!", ev.ContractTitle)),
			})
		}
		return append(out, Notification{
			Channel: ChannelAdmin,
			Topic:   "batch-approved-" + ev.AdminID,
			Payload: basePayload(ev, "batch-approval",
				fmt.Sprintf("Contract for %s has been approved", ev.ContractTitle)),
		})

	case KindWorkCompleted:
		msg := fmt.Sprintf("%s has completed %q in %s", contractorLabel(ev), ev.Heading, ev.ContractTitle)
		return []Notification{
			{Channel: ChannelAdmin, Topic: "work-completed", Payload: workPayload(ev, "work-completion", msg)},
			{Channel: ChannelAgency, Topic: "work-completion-" + ev.AgencyID, Payload: workPayload(ev, "work-completion", msg)},
		}

	case KindWorkProgress:
		msg := fmt.Sprintf("%s has reached %s on %q in %s", contractorLabel(ev), progressLabel(ev.WorkStatus), ev.Heading, ev.ContractTitle)
		return []Notification{
			{Channel: ChannelAdmin, Topic: "work-progress", Payload: workPayload(ev, "work-progress", msg)},
			{Channel: ChannelAgency, Topic: "work-progress-" + ev.AgencyID, Payload: workPayload(ev, "work-progress", msg)},
		}

	case KindWorkApproved:
		mine := fmt.Sprintf("Your work for milestone %q in %s has been approved.", ev.Heading, ev.ContractTitle)
		theirs := fmt.Sprintf("Work for milestone %q in %s has been approved.", ev.Heading, ev.ContractTitle)
		return []Notification{
			{Channel: ChannelContractor, Topic: "work-approved-" + ev.ContractorID, Payload: approvalPayload(ev, mine)},
			{Channel: ChannelAdmin, Topic: "work-approved", Payload: approvalPayload(ev, theirs)},
			{Channel: ChannelAgency, Topic: "work-approved-" + ev.AgencyID, Payload: approvalPayload(ev, theirs)},
		}

	case KindAgencyPayment:
		p := basePayload(ev, "agency-payment",
			fmt.Sprintf("Payment received from %s for contract: %s", ev.AgencyName, ev.ContractTitle))
		p["agencyName"] = ev.AgencyName
		p["contractTitle"] = ev.ContractTitle
		p["milestoneHeading"] = ev.Heading
		p["transactionId"] = ev.TransactionID
		p["amount"] = ev.Amount
		return []Notification{{Channel: ChannelAdmin, Topic: "agency-payment-received", Payload: p}}

	case KindContractorPayment:
		toContractor := basePayload(ev, "payment",
			fmt.Sprintf("Payment completed for your milestone %q in %s", ev.Heading, ev.ContractTitle))
		toAdmin := basePayload(ev, "contractor-payment",
			fmt.Sprintf("Payment sent to %s for milestone %q in %s", contractorLabel(ev), ev.Heading, ev.ContractTitle))
		for _, p := range []map[string]any{toContractor, toAdmin} {
			p["milestoneIndex"] = ev.MilestoneIndex
			p["milestoneId"] = ev.MilestoneID
			p["milestoneHeading"] = ev.Heading
			p["transactionId"] = ev.TransactionID
			p["amount"] = ev.Amount
		}
		toAdmin["contractorName"] = ev.ContractorName
		toAdmin["contractTitle"] = ev.ContractTitle
		return []Notification{
			{Channel: ChannelContractor, Topic: "payment-completed-" + ev.ContractorID, Payload: toContractor},
			{Channel: ChannelAdmin, Topic: "contractor-payment-sent", Payload: toAdmin},
		}

	case KindInvoiceDownloaded:
		who := ev.ActorName
		if who == "" {
			who = "User"
		}
		msg := fmt.Sprintf("%s (%s) downloaded invoice for contract %q", who, ev.Role, ev.ContractTitle)
		out := []Notification{{Channel: ChannelAdmin, Topic: "invoice-downloaded", Payload: invoicePayload(ev, msg)}}
		if ev.Role != model.RoleAgency {
			out = append(out, Notification{
				Channel: ChannelAgency,
				Topic:   "invoice-downloaded-" + ev.AgencyID,
				Payload: invoicePayload(ev, msg),
			})
		}
		return out
	}
	return nil
}

func basePayload(ev Event, typ, msg string) map[string]any {
	return map[string]any{
		"id":        fmt.Sprintf("%s-%s-%d", typ, ev.BatchID, ev.OccurredAt.UnixMilli()),
		"type":      typ,
		"message":   msg,
		"batchId":   ev.BatchID,
		"timestamp": ev.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

func workPayload(ev Event, typ, msg string) map[string]any {
	p := basePayload(ev, typ, msg)
	p["contractorName"] = ev.ContractorName
	p["batchTitle"] = ev.ContractTitle
	p["milestoneIndex"] = ev.MilestoneIndex
	p["milestoneId"] = ev.MilestoneID
	p["milestoneHeading"] = ev.Heading
	p["workStatus"] = string(ev.WorkStatus)
	p["updatedCount"] = ev.Count
	return p
}

func approvalPayload(ev Event, msg string) map[string]any {
	p := basePayload(ev, "work-approval", msg)
	p["contractorName"] = ev.ContractorName
	p["milestoneIndex"] = ev.MilestoneIndex
	p["milestoneId"] = ev.MilestoneID
	p["milestoneHeading"] = ev.Heading
	p["approvedCount"] = ev.Count
	return p
}

func invoicePayload(ev Event, msg string) map[string]any {
	p := basePayload(ev, "invoice-download", msg)
	p["contractTitle"] = ev.ContractTitle
	p["milestoneIndex"] = ev.MilestoneIndex
	p["milestoneId"] = ev.MilestoneID
	p["milestoneHeading"] = ev.Heading
	p["userId"] = ev.ActorID
	p["userRole"] = ev.Role.String()
	p["userName"] = ev.ActorName
	return p
}

func contractorLabel(ev Event) string {
	if ev.ContractorName != "" {
		return ev.ContractorName
	}
	return "Unknown Contractor"
}

func progressLabel(w model.WorkStatus) string {
	switch w {
	case model.WorkStatus30Percent:
		return "30%"
	case model.WorkStatus80Percent:
		return "80%"
	}
	return string(w)
}
