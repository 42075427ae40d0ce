// Package description fetches and decodes UPnP device description documents.
//
// Every SSDP response carries a LOCATION URL pointing at an XML document that
// names the device. dialscan fetches it to show a friendly name next to each
// discovered location. DIAL servers additionally return an Application-URL
// response header, which is captured as Description.ApplicationURL.
//
// # Usage Example
//
//	client := description.NewClient()
//	desc, err := client.Fetch(ctx, "http://192.168.1.20:8008/ssdp/device-desc.xml")
//	if err != nil {
//	    fmt.Println(description.GetShortErrorMessage(err))
//	    return
//	}
//	fmt.Println(desc.Name(), desc.ApplicationURL)
//
// # Error Handling
//
// All errors are *DescriptionError values classified by ErrorType. Timeouts,
// refused connections and 5xx responses are retried with exponential backoff
// (github.com/cenkalti/backoff). Parse, validation and 4xx errors are not.
// Use IsRetryable, IsParseError and friends to inspect them.
package description
