package common

// SessionCookieName is the cookie carrying the session token for browser
// clients. API clients send the same token in the Authorization header.
const SessionCookieName = "token"

// BearerPrefix prefixes the token in the Authorization header.
const BearerPrefix = "Bearer "

// OTPQueueName is the logical name of the queue that receives OTP email
// delivery requests.
const OTPQueueName = "otp-email-queue"
