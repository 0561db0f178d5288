package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestUser(t *testing.T) {
	Convey("Methods work as expected", t, func() {
		user := new(User)
		Convey("Setting and verify password works correctly with hashes", func() {
			user.SetPassword([]byte("hello123"))
			So(user.Password, ShouldStartWith, "$")

			So(user.VerifyPassword([]byte("hello123")), ShouldBeNil)
			So(user.VerifyPassword([]byte("hello12")), ShouldNotBeNil)
		})

		Convey("Invalid hash returns the correct error code", func() {
			user.Password = "I DON'T WORK"
			So(user.VerifyPassword([]byte("hello123")).Error(), ShouldContainSubstring, "hashedSecret too short")
		})
	})
}

func TestJWTGeneration(t *testing.T) {
	Convey("test basic claim creation", t, func() {
		ts, err := newJWT("hello test")
		So(ts, ShouldNotBeNil)
		So(err, ShouldBeNil)
	})
}

func postLogin(lp *LoginPayload) *httptest.ResponseRecorder {
	body, _ := json.Marshal(lp)

	req := httptest.NewRequest("POST", "/api/login/", bytes.NewBuffer(body))
	req.Header.Add("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	http.HandlerFunc(Login).ServeHTTP(rr, req)
	return rr
}

func TestLogin(t *testing.T) {
	// setup the fake db
	db, err := openDb("./tmp/test.db")
	if err != nil {
		panic(err)
	}
	ENV.DB = db

	user := &User{
		Email: "driver@test.case",
	}
	user.SetPassword([]byte("testing123"))
	ENV.DB.Save(user)

	Convey("Valid request works as expected", t, func() {
		rr := postLogin(&LoginPayload{
			Email:    "driver@test.case",
			Password: "testing123",
		})

		So(rr.Code, ShouldEqual, http.StatusOK)
		So(rr.Body.String(), ShouldContainSubstring, `"token":`)
	})

	Convey("Invalid credentials return error", t, func() {
		Convey("Incorrect username provides 404", func() {
			rr := postLogin(&LoginPayload{
				Email:    "stranger@test.case",
				Password: "testing123",
			})

			So(rr.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Incorrect password provides 403", func() {
			rr := postLogin(&LoginPayload{
				Email:    "driver@test.case",
				Password: "testing12",
			})

			So(rr.Code, ShouldEqual, http.StatusForbidden)
		})
	})
}

func TestValidateJWT(t *testing.T) {
	protected := ValidateJWT(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Success"))
	}))

	Convey("Missing token is rejected", t, func() {
		req := httptest.NewRequest("GET", "/api/refresh_token", nil)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		So(rr.Code, ShouldEqual, http.StatusUnauthorized)
	})

	Convey("Garbage token is rejected", t, func() {
		req := httptest.NewRequest("GET", "/api/refresh_token?jwt=no.chance.here", nil)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		So(rr.Code, ShouldEqual, http.StatusUnauthorized)
		So(rr.Body.String(), ShouldContainSubstring, "Invalid token")
	})

	Convey("Fresh token is accepted", t, func() {
		ts, err := newJWT("driver@test.case")
		So(err, ShouldBeNil)

		req := httptest.NewRequest("GET", "/api/refresh_token?jwt="+ts, nil)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		So(rr.Code, ShouldEqual, http.StatusOK)
		So(rr.Body.String(), ShouldEqual, "Success")

		Convey("and the bearer header works too", func() {
			req := httptest.NewRequest("GET", "/api/refresh_token", nil)
			req.Header.Set("Authorization", "Bearer "+ts)
			rr := httptest.NewRecorder()
			protected.ServeHTTP(rr, req)

			So(rr.Code, ShouldEqual, http.StatusOK)
		})
	})
}
