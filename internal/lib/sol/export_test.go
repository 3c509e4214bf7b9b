package sol

var VerifyConnectivity = verifyConnectivity
