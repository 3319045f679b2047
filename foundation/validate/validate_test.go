package validate_test

import (
	"strings"
	"testing"

	"github.com/ardanlabs/ballot/foundation/validate"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_Address(t *testing.T) {
	type table struct {
		name  string
		addr  string
		valid bool
	}

	tt := []table{
		{name: "lower", addr: "0xdd6b972ffcc631a62cae1bb9d80b7ff429c8eba4", valid: true},
		{name: "mixed", addr: "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4", valid: true},
		{name: "upper", addr: "0xDD6B972FFCC631A62CAE1BB9D80B7FF429C8EBA4", valid: true},
		{name: "short", addr: "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA", valid: false},
		{name: "long", addr: "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA44", valid: false},
		{name: "nonhex", addr: "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebAZ", valid: false},
		{name: "noprefix", addr: "dd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4", valid: false},
		{name: "noprefix42", addr: "00dd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4", valid: false},
		{name: "upperprefix", addr: "0Xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4", valid: false},
		{name: "empty", addr: "", valid: false},
		{name: "prefixonly", addr: "0x", valid: false},
		{name: "spaces", addr: " 0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4", valid: false},
	}

	t.Log("Given the need to validate user supplied addresses.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling address %q.", testID, tst.addr)
			{
				f := func(t *testing.T) {
					_, err := validate.Address("address", tst.addr)
					if (err == nil) != tst.valid {
						t.Fatalf("\t%s\tTest %d:\tShould get valid=%v, got err=%v.", failed, testID, tst.valid, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get valid=%v.", success, testID, tst.valid)

					if err != nil && !validate.IsValidationError(err) {
						t.Fatalf("\t%s\tTest %d:\tShould get a validation error: %T.", failed, testID, err)
					}
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_Proposal(t *testing.T) {
	type table struct {
		name     string
		proposal string
		valid    bool
	}

	tt := []table{
		{name: "basic", proposal: "Proposal 1", valid: true},
		{name: "full", proposal: strings.Repeat("a", 32), valid: true},
		{name: "toolong", proposal: strings.Repeat("a", 33), valid: false},
		{name: "empty", proposal: "", valid: false},
		{name: "blank", proposal: "   ", valid: false},
		{name: "nul", proposal: "a\x00b", valid: false},
	}

	t.Log("Given the need to validate proposal names.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling proposal %q.", testID, tst.proposal)
			{
				f := func(t *testing.T) {
					_, err := validate.Proposal("proposal", tst.proposal)
					if (err == nil) != tst.valid {
						t.Fatalf("\t%s\tTest %d:\tShould get valid=%v, got err=%v.", failed, testID, tst.valid, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get valid=%v.", success, testID, tst.valid)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_Check(t *testing.T) {
	type settings struct {
		PrivateKey string `json:"PRIVATE_KEY" validate:"required,hexkey"`
		Contract   string `json:"CONTRACT_ADDRESS" validate:"required,address"`
	}

	t.Log("Given the need to validate a configuration model.")
	{
		t.Logf("\tTest 0:\tWhen values are missing.")
		{
			err := validate.Check(settings{})
			ve := validate.GetValidationError(err)
			if ve == nil {
				t.Fatalf("\t%s\tTest 0:\tShould get a validation error: %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get a validation error.", success)

			if len(ve.Fields) != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould get two field errors, got %d.", failed, len(ve.Fields))
			}
			t.Logf("\t%s\tTest 0:\tShould get two field errors.", success)

			if ve.Fields[0].Field != "PRIVATE_KEY" {
				t.Fatalf("\t%s\tTest 0:\tShould name the field by its tag, got %q.", failed, ve.Fields[0].Field)
			}
			t.Logf("\t%s\tTest 0:\tShould name the field by its tag.", success)
		}

		t.Logf("\tTest 1:\tWhen values are malformed.")
		{
			err := validate.Check(settings{PrivateKey: "abc", Contract: "0x1234"})
			ve := validate.GetValidationError(err)
			if ve == nil {
				t.Fatalf("\t%s\tTest 1:\tShould get a validation error: %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get a validation error.", success)

			if !strings.Contains(ve.Error(), "40 character hex address") {
				t.Fatalf("\t%s\tTest 1:\tShould get the translated address message: %s", failed, ve.Error())
			}
			t.Logf("\t%s\tTest 1:\tShould get the translated address message.", success)
		}

		t.Logf("\tTest 2:\tWhen values are good.")
		{
			s := settings{
				PrivateKey: "0xfae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959",
				Contract:   "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4",
			}
			if err := validate.Check(s); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould pass validation: %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould pass validation.", success)
		}
	}
}
