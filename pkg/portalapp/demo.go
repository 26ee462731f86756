package portalapp

import (
	portal "github.com/goliatone/go-insurance/components/portal"
	"github.com/goliatone/go-insurance/pkg/apiclient"
)

// DemoPaymentLimit is the largest charge the mock processor accepts.
const DemoPaymentLimit = 10000

// DemoAccounts are the logins seeded into the mock API.
var DemoAccounts = []apiclient.Account{
	{Name: "Ann Admin", Email: "admin@example.com", Password: "admin123", Role: "Admin"},
	{Name: "John Doe", Email: "johndoe@example.com", Password: "user1234", Role: "User"},
}

func seedDemo(mem *apiclient.Memory) error {
	seeds := map[string][]any{
		portal.ResourceUsers: {
			portal.User{Name: "John Doe", Code: "JD-001", Status: portal.UserActive},
			portal.User{Name: "Mary Major", Code: "MM-002", Status: portal.UserInactive},
		},
		portal.ResourcePolicies: {
			portal.Policy{Provider: "Acme Mutual", PolicyNumber: "POL-1001", Coverage: "Comprehensive", PremiumAmount: 1250},
			portal.Policy{Provider: "Harbor Insurance", PolicyNumber: "POL-1002", Coverage: "Liability", PremiumAmount: 480.5},
		},
		portal.ResourceQuotes: {
			portal.Quote{FirstName: "John", LastName: "Doe", Email: "johndoe@example.com", Make: "Toyota", Model: "Corolla", Year: "2021", Amount: "900", Status: portal.QuotePending},
		},
		portal.ResourceTickets: {
			portal.Ticket{FullName: "John Doe", Email: "johndoe@example.com", Category: "Billing", Subject: "Duplicate charge", Description: "I was billed twice this month.", Status: portal.TicketOpen},
		},
		portal.ResourceTransactions: {
			portal.Transaction{RefCode: "TX-9001", Client: "John Doe", Policy: "POL-1001", VehicleRegNo: "ABC-123", Registration: "2024-01-10", Expiration: "2025-01-10", Cost: 1250},
		},
		portal.ResourceReports: {
			portal.Report{Name: "Q1 Satisfaction", Survey: "Customer NPS", EmployeesCount: 1200, Participation: "64%", Status: "Completed"},
		},
	}
	for resource, records := range seeds {
		if err := mem.Seed(resource, records...); err != nil {
			return err
		}
	}
	return nil
}
