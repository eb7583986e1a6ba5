package services

import (
	"errors"
	"testing"

	"quiz-stake-system/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	// Every new :memory: connection is a separate database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.CompanyProfile{},
		&models.PlayerProfile{},
		&models.AnsweredQuestion{},
		&models.Question{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func validCompanyInput() CompanyInput {
	return CompanyInput{
		Username:           "Acme Corp",
		CompanyName:        "Acme Corp",
		Website:            "https://acme.example",
		CompanyEmail:       "hello@acme.example",
		Country:            "Germany",
		CompanyDescription: "We make everything",
		NumberOfQuestions:  20,
		WalletAddress:      "0xabc",
		WebsiteConsent:     true,
		PrivacyConsent:     true,
	}
}

func TestValidateCompanyInput(t *testing.T) {
	if err := ValidateCompanyInput(validCompanyInput()); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*CompanyInput)
	}{
		{"missing username", func(in *CompanyInput) { in.Username = "" }},
		{"username of only symbols", func(in *CompanyInput) { in.Username = "!!!" }},
		{"missing company name", func(in *CompanyInput) { in.CompanyName = "" }},
		{"missing website", func(in *CompanyInput) { in.Website = "" }},
		{"missing company email", func(in *CompanyInput) { in.CompanyEmail = "" }},
		{"missing country", func(in *CompanyInput) { in.Country = "" }},
		{"missing description", func(in *CompanyInput) { in.CompanyDescription = "" }},
		{"zero questions", func(in *CompanyInput) { in.NumberOfQuestions = 0 }},
		{"negative questions", func(in *CompanyInput) { in.NumberOfQuestions = -5 }},
		{"missing wallet", func(in *CompanyInput) { in.WalletAddress = "" }},
		{"website consent withheld", func(in *CompanyInput) { in.WebsiteConsent = false }},
		{"privacy consent withheld", func(in *CompanyInput) { in.PrivacyConsent = false }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validCompanyInput()
			tc.mutate(&in)
			if err := ValidateCompanyInput(in); !errors.Is(err, ErrValidation) {
				t.Fatalf("got %v, want ErrValidation", err)
			}
		})
	}
}

func TestValidatePlayerInput(t *testing.T) {
	valid := PlayerInput{
		Username:      "speedy",
		WalletAddress: "0xdef",
		Bio:           "I answer trivia fast",
	}
	if err := ValidatePlayerInput(valid); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*PlayerInput)
		wantOK bool
	}{
		{"missing username", func(in *PlayerInput) { in.Username = "" }, false},
		{"missing wallet", func(in *PlayerInput) { in.WalletAddress = "" }, false},
		{"bio at the word limit", func(in *PlayerInput) { in.Bio = "one two three four five six seven eight nine ten" }, true},
		{"bio over the word limit", func(in *PlayerInput) { in.Bio = "one two three four five six seven eight nine ten eleven" }, false},
		{"empty bio", func(in *PlayerInput) { in.Bio = "" }, true},
		{"bio of only whitespace", func(in *PlayerInput) { in.Bio = "   \n\t " }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			err := ValidatePlayerInput(in)
			if tc.wantOK && err != nil {
				t.Fatalf("got %v, want success", err)
			}
			if !tc.wantOK && !errors.Is(err, ErrValidation) {
				t.Fatalf("got %v, want ErrValidation", err)
			}
		})
	}
}

func TestCheckIdentityAvailableAcrossRoles(t *testing.T) {
	db := newTestDB(t)
	svc := NewOnboardingService(db, nil)

	seedCompany := models.CompanyProfile{
		Username: "acme", AuthUID: "uid-co", Email: "co@acme.example",
		CompanyName: "Acme", Website: "https://acme.example",
		CompanyEmail: "hello@acme.example", NumberOfQuestions: 20,
		WalletAddress: "0xaaa",
	}
	if err := db.Create(&seedCompany).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	seedPlayer := models.PlayerProfile{
		Username: "speedy", AuthUID: "uid-pl", Email: "pl@example.com",
		WalletAddress: "0xbbb", Life: 5, AssignedQuestions: 20,
	}
	if err := db.Create(&seedPlayer).Error; err != nil {
		t.Fatalf("seed player: %v", err)
	}

	cases := []struct {
		name     string
		username string
		wallet   string
		wantDup  bool
	}{
		{"username held by a company", "acme", "0xfresh", true},
		{"username held by a player", "speedy", "0xfresh", true},
		{"username differing only in case", "Acme", "0xfresh", true},
		{"wallet held by a company", "fresh", "0xaaa", true},
		{"wallet held by a player", "fresh", "0xbbb", true},
		{"both fresh", "fresh", "0xfresh", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.CheckIdentityAvailable(tc.username, tc.wallet)
			if tc.wantDup && !errors.Is(err, ErrDuplicateIdentity) {
				t.Fatalf("got %v, want ErrDuplicateIdentity", err)
			}
			if !tc.wantDup && err != nil {
				t.Fatalf("got %v, want available", err)
			}
		})
	}
}

func TestCreatePlayerProfileDefaults(t *testing.T) {
	db := newTestDB(t)
	svc := NewOnboardingService(db, nil)

	player, err := svc.CreatePlayerProfile(PlayerInput{
		AuthUID:       "uid-1",
		Email:         "p@example.com",
		Username:      "Speedy Gonzales",
		WalletAddress: "0x1",
		Bio:           "fastest mouse around",
	})
	if err != nil {
		t.Fatalf("CreatePlayerProfile: %v", err)
	}
	if player.Username != "speedy-gonzales" {
		t.Fatalf("Username = %q, want slugged key", player.Username)
	}
	if player.Life != DefaultPlayerLife || player.AssignedQuestions != DefaultAssignedQuestions {
		t.Fatalf("defaults = life %d, assigned %d", player.Life, player.AssignedQuestions)
	}
	if player.Score != 0 || player.Answered != 0 || player.IsStaked {
		t.Fatalf("fresh player has non-zero progress: %+v", player)
	}

	var stored models.PlayerProfile
	if err := db.First(&stored, "username = ?", "speedy-gonzales").Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.WalletAddress != "0x1" {
		t.Fatalf("stored wallet = %q", stored.WalletAddress)
	}
}

func TestCreatePlayerProfileDuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	svc := NewOnboardingService(db, nil)

	if _, err := svc.CreatePlayerProfile(PlayerInput{
		AuthUID: "uid-1", Email: "a@example.com", Username: "racer", WalletAddress: "0x1",
	}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.CreatePlayerProfile(PlayerInput{
		AuthUID: "uid-2", Email: "b@example.com", Username: "Racer", WalletAddress: "0x2",
	})
	if !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("second create = %v, want ErrDuplicateIdentity", err)
	}
}

func TestCreatePlayerProfileLostRaceFailsOnInsert(t *testing.T) {
	db := newTestDB(t)
	svc := NewOnboardingService(db, nil)

	// A winner slipping in between the availability pre-check and the insert
	// is modeled by a conflicting row the pre-check does not cover: auth_uid
	// is unique but not pre-checked, so the keyed insert is what rejects it.
	if _, err := svc.CreatePlayerProfile(PlayerInput{
		AuthUID: "uid-1", Email: "a@example.com", Username: "first", WalletAddress: "0x1",
	}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.CreatePlayerProfile(PlayerInput{
		AuthUID: "uid-1", Email: "b@example.com", Username: "second", WalletAddress: "0x2",
	})
	if !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("conflicting insert = %v, want ErrDuplicateIdentity from the constraint", err)
	}
}

func TestCreateCompanyProfileRoleConflict(t *testing.T) {
	db := newTestDB(t)
	svc := NewOnboardingService(db, nil)

	if _, err := svc.CreatePlayerProfile(PlayerInput{
		AuthUID: "uid-pl", Email: "both@example.com", Username: "both", WalletAddress: "0x1",
	}); err != nil {
		t.Fatalf("seed player: %v", err)
	}

	in := validCompanyInput()
	in.AuthUID = "uid-co"
	in.Email = "both@example.com"
	if _, err := svc.CreateCompanyProfile(in); !errors.Is(err, ErrRoleConflict) {
		t.Fatalf("got %v, want ErrRoleConflict", err)
	}

	var count int64
	if err := db.Model(&models.CompanyProfile{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected signup persisted %d company rows", count)
	}
}

func TestUsernameKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Acme Corp", "acme-corp"},
		{"  spaced  out  ", "spaced-out"},
		{"already-slugged", "already-slugged"},
		{"MixedCASE123", "mixedcase123"},
	}
	for _, tc := range cases {
		if got := UsernameKey(tc.in); got != tc.want {
			t.Fatalf("UsernameKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBioWordCount(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{"one  two\tthree", 3},
	}
	for _, tc := range cases {
		if got := bioWordCount(tc.in); got != tc.want {
			t.Fatalf("bioWordCount(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
