package bootstrap

import "github.com/goliatone/go-accounts/model"

type sampleDepartment struct {
	Name        string
	Description string
}

type samplePerson struct {
	Name       string
	Email      string
	Department string
}

var roleDescriptions = map[string]string{
	model.RoleUser:  "Standard user with basic permissions",
	model.RoleAdmin: "Administrator with full permissions",
}

const (
	adminDepartment            = "Leadership"
	adminDepartmentDescription = "Executive leadership"
	adminName                  = "System Administrator"
	adminEmail                 = "admin@example.com"
)

var sampleDepartments = []sampleDepartment{
	{"Engineering", "Software development and technical teams"},
	{"Marketing", "Marketing and brand management"},
	{"Sales", "Sales and business development"},
	{"HR", "Human resources and recruitment"},
	{"Security", "Security and risk management"},
	{"Photography", "Photography and media"},
	{"Legal", "Legal and compliance"},
	{"Journalism", "News and reporting"},
	{adminDepartment, adminDepartmentDescription},
	{"Research", "Research and development"},
	{"Operations", "Operations and logistics"},
}

const (
	testUsername   = "testuser"
	testName       = "Test User"
	testEmail      = "test.user@example.com"
	testDepartment = "Engineering"
)

var samplePeople = []samplePerson{
	{"John Doe", "john.doe@example.com", "Engineering"},
	{"Jane Smith", "jane.smith@example.com", "Marketing"},
	{"Bob Johnson", "bob.johnson@example.com", "Sales"},
	{"Alice Brown", "alice.brown@example.com", "HR"},
	{"Charlie Wilson", "charlie.wilson@example.com", "Engineering"},
	{"Tony Stark", "tony.stark@example.com", "Engineering"},
	{"Bruce Wayne", "bruce.wayne@example.com", "Security"},
	{"Peter Parker", "peter.parker@example.com", "Photography"},
	{"Diana Prince", "diana.prince@example.com", "Legal"},
	{"Clark Kent", "clark.kent@example.com", "Journalism"},
	{"Natasha Romanoff", "natasha.romanoff@example.com", "Security"},
	{"Steve Rogers", "steve.rogers@example.com", "Leadership"},
	{"Wanda Maximoff", "wanda.maximoff@example.com", "Research"},
	{"Scott Lang", "scott.lang@example.com", "Engineering"},
	{"Carol Danvers", "carol.danvers@example.com", "Operations"},
}
