package constants

const USER_AGENT = "s3pay/1.0 (+https://ssstore.com.ar)"

const SERVICE_NAME = "s3pay"
