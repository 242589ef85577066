/*
Package googleddns updates a Google Domains Dynamic DNS record.

Usage will always start with [New],
which returns a Client for a single hostname.
New requires the registered domain, the subdomain to update,
and the Dynamic DNS credentials generated by the provider.
Additional client configuration options are listed in the docs for New.

Each call to [Client.Run] performs exactly one HTTPS request to the
provider's update endpoint and reports the outcome.
The provider's plain-text response vocabulary is mapped to a [Result]
or to one of the exported error values in this package.
*/
package googleddns
