package auth

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"

	"github.com/okian/starboard/internal/domain/clock"
)

var noon = time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)

func TestPasswordCheck(t *testing.T) {
	Convey("Given an authorizer with a plain password", t, func() {
		a, err := New(WithPassword("s3cret"))
		So(err, ShouldBeNil)

		Convey("Then only the exact password is accepted", func() {
			So(a.Configured(), ShouldBeTrue)
			So(a.CheckPassword("s3cret"), ShouldBeNil)
			So(a.CheckPassword("S3CRET"), ShouldEqual, ErrInvalidPassword)
			So(a.CheckPassword(""), ShouldEqual, ErrInvalidPassword)
		})
	})

	Convey("Given an authorizer with a bcrypt hash", t, func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("hashed"), bcrypt.MinCost)
		So(err, ShouldBeNil)
		a, err := New(WithPasswordHash(string(hash)), WithPassword("plain"))
		So(err, ShouldBeNil)

		Convey("Then the hash takes precedence over the plain password", func() {
			So(a.CheckPassword("hashed"), ShouldBeNil)
			So(a.CheckPassword("plain"), ShouldEqual, ErrInvalidPassword)
		})
	})

	Convey("Given a malformed hash", t, func() {
		_, err := New(WithPasswordHash("not-a-hash"))

		Convey("Then construction fails", func() {
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given no password at all", t, func() {
		a, err := New()
		So(err, ShouldBeNil)

		Convey("Then nothing is accepted", func() {
			So(a.Configured(), ShouldBeFalse)
			So(a.CheckPassword("anything"), ShouldEqual, ErrNotConfigured)
			So(a.Authorize("anything"), ShouldBeFalse)
		})
	})

	Convey("HashPassword produces a hash the authorizer accepts", t, func() {
		hash, err := HashPassword("rotated")
		So(err, ShouldBeNil)
		a, err := New(WithPasswordHash(hash))
		So(err, ShouldBeNil)
		So(a.CheckPassword("rotated"), ShouldBeNil)
	})
}

func TestTokens(t *testing.T) {
	Convey("Given an authorizer with a fixed clock", t, func() {
		a, err := New(
			WithPassword("pw"),
			WithSigningKey("signing-key"),
			WithTokenTTL(time.Hour),
			WithClock(clock.Fixed(noon)),
		)
		So(err, ShouldBeNil)

		Convey("When logging in with the right password", func() {
			token, expires, err := a.Login("pw")

			Convey("Then a verifiable token is returned", func() {
				So(err, ShouldBeNil)
				So(expires, ShouldEqual, noon.Add(time.Hour))
				claims, err := a.VerifyToken(token)
				So(err, ShouldBeNil)
				So(claims.Subject, ShouldEqual, "admin")
				So(a.Authorize("Bearer "+token), ShouldBeTrue)
			})
		})

		Convey("When logging in with the wrong password", func() {
			_, _, err := a.Login("nope")

			Convey("Then no token is issued", func() {
				So(err, ShouldEqual, ErrInvalidPassword)
			})
		})

		Convey("When a token is checked after it expired", func() {
			token, _, err := a.IssueToken()
			So(err, ShouldBeNil)
			later, err := New(
				WithSigningKey("signing-key"),
				WithClock(clock.Fixed(noon.Add(2*time.Hour))),
			)
			So(err, ShouldBeNil)

			Convey("Then it is rejected", func() {
				_, err := later.VerifyToken(token)
				So(errors.Is(err, ErrInvalidToken), ShouldBeTrue)
				So(later.Authorize("Bearer "+token), ShouldBeFalse)
			})
		})

		Convey("When a token is signed with another key", func() {
			other, err := New(WithSigningKey("other-key"), WithClock(clock.Fixed(noon)))
			So(err, ShouldBeNil)
			token, _, err := other.IssueToken()
			So(err, ShouldBeNil)

			Convey("Then it is rejected", func() {
				So(a.Authorize("Bearer "+token), ShouldBeFalse)
			})
		})

		Convey("Then raw passwords are authorised too", func() {
			So(a.Authorize("pw"), ShouldBeTrue)
			So(a.Authorize("  "), ShouldBeFalse)
			So(a.Authorize("Bearer garbage"), ShouldBeFalse)
		})
	})
}
