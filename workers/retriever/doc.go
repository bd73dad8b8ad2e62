/*
Package retriever serves the reviewer app's Android installer through
GET /api/download.

The installer lives on a third-party file host. For large files the host
answers the first request with an HTML "can't scan this file for viruses"
page instead of the file. The page embeds a confirmation token; repeating the
request with that token returns the binary.

Layout

	├── cmd/                  # entry point (HTTP server or Lambda)
	├── internal/
	│   ├── domain/           # entities, errors and ports
	│   │   └── service/      # token extractors and the Retriever
	│   ├── adapters/http/    # outbound HTTP client
	│   └── worker/           # handler.Worker implementation
	└── mocks/                # testify mocks of the ports

Request

	GET /api/download?resource=<name>

The resource parameter is optional and selects an entry of the configured
catalogue; without it the default resource is served.

Responses

On success the body is the archive with the headers

	Content-Type: application/vnd.android.package-archive
	Content-Disposition: attachment; filename="let-reviewer.apk"
	Content-Length: <n>
	Cache-Control: no-cache, no-store, must-revalidate

On failure the status is 500 (404 for an unknown resource name) and the body
is {"error": "<message>"}.

Configuration

	RETRIEVER_URL_TEMPLATE       upstream URL, %s is replaced by the resource id
	RETRIEVER_RESOURCE_ID        id of the default resource (required)
	RETRIEVER_FILENAME           attachment filename of the default resource
	RETRIEVER_RESOURCES          extra resources, name=id:filename,...
	RETRIEVER_USER_AGENT         desktop browser User-Agent sent upstream
	RETRIEVER_HEADERS            extra outbound headers, key=value,...
	RETRIEVER_FETCH_TIMEOUT      per-call timeout (default 60s)
	RETRIEVER_MAX_ARTIFACT_SIZE  body cap in bytes (default 200 MiB)
	RETRIEVER_TOKEN_EXTRACTOR    regex (default), form or chain
*/
package retriever
