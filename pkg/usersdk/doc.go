/*
Package usersdk is a Go client for the quizverse users service.

Client covers the endpoints that need no bearer token and creates a
Session on login:

	client := usersdk.NewClient("http://localhost:8080")

	user, err := client.Register(ctx, usersdk.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.edu",
		Password: "Str0ng!Pass",
	})

	session, err := client.Login(ctx, "alice", "Str0ng!Pass")

Session carries the access and refresh tokens and adds the Authorization
header to every call:

	me, err := session.Me(ctx)
	err = session.VerifyEmail(ctx, otp)
	err = session.Refresh(ctx)
	err = session.Logout(ctx)

The forgot password flow needs no session:

	err = client.ForgotPassword(ctx, "alice@example.edu")
	token, err := client.VerifyForgotOTP(ctx, otp, "")
	err = client.ResetForgotPassword(ctx, token, "N3w!Passw0rd")

# Errors

Every non-2xx response is returned as *APIError carrying the status code
and the "details" and "field" members of the body.
*/
package usersdk
